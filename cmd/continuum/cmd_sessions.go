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

	"github.com/AleutianAI/AleutianContinuum/pkg/logging"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/memory"
)

func listSessions(cmd *cobra.Command, args []string) error {
	if dataDir == "" {
		return fmt.Errorf("sessions requires --data-dir; in-memory runs leave no audit log")
	}
	logger := logging.New(logging.Config{Level: logging.LevelWarn, Service: "continuum"})
	defer logger.Close()

	store, err := memory.Open(memory.DefaultConfig(dataDir), memory.WithStoreLogger(logger.Slog()))
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.ListSessionIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no recorded sessions")
		return nil
	}

	for _, id := range ids {
		sum, err := store.LoadSessionSummary(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-13s  %-12s  iters=%-3d  %.3f -> %.3f  %s\n",
			sum.SessionID, sum.TerminalState, string(sum.TaskType),
			sum.Iterations, sum.InitialScore, sum.FinalScore, sum.StopReason)
	}
	return nil
}
