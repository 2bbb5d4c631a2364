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
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// --- Global Command Variables ---
var (
	configPath  string
	dataDir     string
	mode        string
	taskType    string
	query       string
	metricsAddr string
	maxIter     int
	verbose     bool

	rootCmd = &cobra.Command{
		Use:   "continuum",
		Short: "Autonomous continuation of completed task results",
		Long: `Continuum takes a completed task result and autonomously enhances it:
scoring quality, discovering enhancement opportunities, and iterating
until the quality threshold is met or the safety gate calls a stop.`,
	}

	runCmd = &cobra.Command{
		Use:   "run [file...]",
		Short: "Run continuation sessions over the given result files",
		Long: `Runs one continuation session per input file, concurrently. Each file's
contents become the session's initial task result. With no files, a
built-in sample result is used.`,
		RunE: runContinuation, // Defined in cmd_run.go
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "List recorded continuation sessions from the audit log",
		RunE:  listSessions, // Defined in cmd_sessions.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the continuum version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("continuum", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the learning memory store (default: in-memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a continuation config YAML file")
	runCmd.Flags().StringVar(&mode, "mode", "", "Continuation mode: conservative, adaptive, or aggressive")
	runCmd.Flags().StringVar(&taskType, "task-type", "code", "Task type of the input results")
	runCmd.Flags().StringVar(&query, "query", "", "Original task query, used to ground enhancement prompts")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090)")
	runCmd.Flags().IntVar(&maxIter, "max-iterations", 0, "Iteration ceiling override")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}
