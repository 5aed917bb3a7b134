// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/thinkshell/internal/config"
	"github.com/hyper-ai-inc/thinkshell/internal/logging"
	"github.com/hyper-ai-inc/thinkshell/internal/pty"
)

var (
	cfgFile   string
	provider  string
	shellPath string
)

var rootCmd = &cobra.Command{
	Use:   "thinkshell",
	Short: "Interactive shell that resolves unknown commands with an LLM",
	Long: `thinkshell starts bash behind a terminal proxy. When bash cannot find a
command, the command line is sent to the decision service, which may inspect
the system read-only, ask a question, propose commands for review, or run
them. Every proposed command passes a safety gate first.

Leave the shell with "exit" or Ctrl-D.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
	RunE: runProxy,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/thinkshell/config.yaml)")
	rootCmd.Flags().StringVar(&provider, "provider", "", "Decision provider to use and remember (openai, none)")
	rootCmd.Flags().StringVar(&shellPath, "shell", "", "bash binary to run (default: auto-detect)")
}

// syncConfigFlagToEnv exports --config so hook processes started by the
// shell read the same file.
func syncConfigFlagToEnv() {
	path := strings.TrimSpace(cfgFile)
	if path == "" {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	_ = os.Setenv(config.EnvConfig, path)
}

func runProxy(cmd *cobra.Command, _ []string) error {
	path := config.Path(cfgFile)
	if provider != "" {
		if err := persistProvider(path, provider); err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.State.Dir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	sh := cfg.Shell.Path
	if shellPath != "" {
		sh = shellPath
	}

	sess, err := pty.Open(pty.Options{
		ShellPath: sh,
		Prompt:    cfg.Shell.Prompt,
		Exe:       exe,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Log:       log,
	})
	if err != nil {
		log.Error("open session", zap.Error(err))
		return err
	}
	defer sess.Close()

	runErr := sess.Run()
	closeErr := sess.Close()
	forget(cfg, sess.ID, log)
	return errors.Join(runErr, closeErr)
}

func persistProvider(path, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case config.ProviderOpenAI, config.ProviderNone:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", value, config.ProviderOpenAI, config.ProviderNone)
	}
	return config.Set(path, "provider", value)
}
