// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyper-ai-inc/thinkshell/internal/config"
	"github.com/hyper-ai-inc/thinkshell/internal/pty"
)

var errNoSession = errors.New("not inside a thinkshell session (" + pty.EnvSessionID + " is unset)")

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the current shell session's conversation",
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the conversation of the current shell session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id := os.Getenv(pty.EnvSessionID)
		if id == "" {
			return errNoSession
		}
		cfg, err := config.Load(config.Path(cfgFile))
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Conversation reset.")
		return err
	},
}

func init() {
	sessionCmd.AddCommand(sessionResetCmd)
	rootCmd.AddCommand(sessionCmd)
}
