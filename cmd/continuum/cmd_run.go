// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianContinuum/pkg/logging"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/events"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/generation"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/memory"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/observability"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/orchestrator"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/quality"
)

// sampleResult is used when no input files are given.
const sampleResult = `def summarize(items):
    return sum(items) / len(items)
`

func runContinuation(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: level, Service: "continuum"})
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tt := datatypes.TaskType(taskType)
	if !tt.IsValid() {
		return fmt.Errorf("unknown task type %q", taskType)
	}

	store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}
	metrics := observability.InitMetrics()

	emitter := events.NewEmitter()
	emitter.Subscribe(func(e *events.Event) {
		logger.Info("session progress",
			"session_id", e.SessionID,
			"event", string(e.Type),
			"iteration", e.Iteration)
	}, events.TypeIterationComplete, events.TypeSafetyHalt, events.TypeSessionEnd)

	// Demo providers: with an empty script, each call echoes the
	// current output back with a revision marker, which is enough to
	// exercise the full loop without a live model.
	primary := generation.NewScriptedGenerator("primary")
	fallback := generation.NewScriptedGenerator("fallback")
	client := generation.NewFailoverClient(primary, fallback,
		generation.WithFailoverLogger(logger.Slog()))

	manager, err := orchestrator.NewManager(quality.NewScorer(quality.WithLogger(logger.Slog())), client,
		orchestrator.WithManagerLogger(logger.Slog()),
		orchestrator.WithEmitter(emitter),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithMemory(store),
	)
	if err != nil {
		return err
	}

	inputs, err := loadInputs(args, tt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()
	tctx := datatypes.TaskContext{Query: query}

	g, gctx := errgroup.WithContext(ctx)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			id, err := manager.Start(gctx, input, tctx, cfg)
			if err != nil {
				return err
			}
			if err := manager.Wait(gctx, id); err != nil {
				return err
			}
			final, err := manager.GetFinalResult(id)
			if err != nil {
				return err
			}
			printFinal(final)
			return nil
		})
	}
	return g.Wait()
}

func loadConfig() (datatypes.Config, error) {
	cfg := datatypes.NewConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return datatypes.Config{}, fmt.Errorf("read config: %w", err)
		}
		cfg, err = datatypes.ParseConfig(data)
		if err != nil {
			return datatypes.Config{}, err
		}
	}
	if mode != "" {
		cfg.Mode = datatypes.Mode(mode)
	}
	if maxIter > 0 {
		cfg.MaxIterations = maxIter
	}
	cfg.Autonomous = true
	if err := cfg.Validate(); err != nil {
		return datatypes.Config{}, err
	}
	return cfg, nil
}

func openStore(logger *logging.Logger) (*memory.Store, error) {
	storeCfg := memory.InMemoryConfig()
	if dataDir != "" {
		storeCfg = memory.DefaultConfig(dataDir)
	}
	return memory.Open(storeCfg, memory.WithStoreLogger(logger.Slog()))
}

func loadInputs(args []string, tt datatypes.TaskType) ([]datatypes.TaskResult, error) {
	if len(args) == 0 {
		return []datatypes.TaskResult{{Success: true, Output: sampleResult, TaskType: tt}}, nil
	}
	inputs := make([]datatypes.TaskResult, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input %s: %w", path, err)
		}
		inputs = append(inputs, datatypes.TaskResult{
			Success:  true,
			Output:   string(data),
			TaskType: tt,
		})
	}
	return inputs, nil
}

func serveMetrics(addr string, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func printFinal(final orchestrator.FinalResult) {
	fmt.Printf("session %s: %s after %d iterations (%.3f -> %.3f)\n",
		final.SessionID, final.TerminalState, final.Iterations,
		final.InitialScore, final.FinalScore)
	if final.StopReason != "" {
		fmt.Printf("  stop reason: %s\n", final.StopReason)
	}
	fmt.Println(final.Result.Output)
}
