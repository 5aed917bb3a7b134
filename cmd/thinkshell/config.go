// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyper-ai-inc/thinkshell/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and edit thinkshell configuration.

Configuration priority (highest to lowest):
  1. Environment variables (THINKSHELL_*, e.g. THINKSHELL_AGENT_MAX_ROUNDS)
  2. Config file (--config, $THINKSHELL_CONFIG, ~/.config/thinkshell/config.yaml)
  3. Defaults

OPENAI_API_KEY and OPENAI_MODEL are also honored.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Show(config.Path(cfgFile))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Write one key to the config file",
	Args:  cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Path(cfgFile)
		if args[0] == "provider" {
			return persistProvider(path, args[1])
		}

		prev, readErr := os.ReadFile(path)
		if err := config.Set(path, args[0], args[1]); err != nil {
			return err
		}
		if _, err := config.Load(path); err != nil {
			// Put the previous file back so the shell keeps working.
			if readErr == nil {
				_ = os.WriteFile(path, prev, 0o600)
			} else {
				_ = os.Remove(path)
			}
			return fmt.Errorf("invalid value for %s: %w", args[0], err)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Path(cfgFile))
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
