// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/thinkshell/internal/agent"
	"github.com/hyper-ai-inc/thinkshell/internal/config"
	"github.com/hyper-ai-inc/thinkshell/internal/decision"
	"github.com/hyper-ai-inc/thinkshell/internal/logging"
	"github.com/hyper-ai-inc/thinkshell/internal/pty"
	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
)

// ModeFail is the only hook mode that resolves anything.
const ModeFail = "FAIL"

var hookCmd = &cobra.Command{
	Use:   pty.HookEntry + " MODE [COMMAND...]",
	Short: "Resolve a command bash could not find (called by the shell hook)",
	Long: `hook is invoked by command_not_found_handle inside a thinkshell session.
It prints shell text for the hook to evaluate, or nothing when there is no
fix. Errors are printed as text rather than returned.`,
	Hidden: true,
	// The failed command line is passed through untouched, dashes included.
	DisableFlagParsing: true,
	Args:               cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h := hook{
			configPath: config.Path(""),
			sessionID:  os.Getenv(pty.EnvSessionID),
			notices:    cmd.ErrOrStderr(),
		}
		_, err := io.WriteString(cmd.OutOrStdout(), h.resolve(ctx, args[0], strings.Join(args[1:], " ")))
		return err
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

type hook struct {
	configPath string
	sessionID  string
	notices    io.Writer
}

// resolve returns the shell text for one hook call. It never fails: errors
// come back as a printed message.
func (h hook) resolve(ctx context.Context, mode, intent string) string {
	if mode != ModeFail || strings.TrimSpace(intent) == "" {
		return ""
	}

	cfg, err := config.Load(h.configPath)
	if err != nil {
		return failure(err)
	}
	if cfg.Provider == config.ProviderNone {
		return ""
	}

	log, err := logging.New(cfg.State.Dir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	svc, err := decision.NewOpenAI(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.Decision.Timeout)
	if err != nil {
		return failure(err)
	}

	conv, save := h.conversation(ctx, cfg, log)
	ctrl := agent.NewController(
		decision.NewClient(svc, log),
		&agent.Runner{Timeout: cfg.Agent.ProbeTimeout, MaxOutput: cfg.Agent.MaxProbeOutput},
		agent.Options{
			MaxRounds:      cfg.Agent.MaxRounds,
			MaxUploads:     cfg.Upload.MaxFiles,
			MaxUploadBytes: cfg.Upload.MaxBytes,
			UploadPurpose:  cfg.Upload.Purpose,
			Notices:        h.notices,
			Log:            log,
		},
	)

	res := ctrl.Resolve(ctx, conv, intent)
	save()
	log.Info("resolved",
		zap.String("session", h.sessionID),
		zap.String("mode", res.Mode.String()),
		zap.Int("commands", len(res.Commands)),
	)
	return agent.Render(res)
}

// conversation loads the stored conversation for the shell session. Outside
// a session, or when the store is unusable, it falls back to a conversation
// that lives for this call only. save persists it and releases the store.
func (h hook) conversation(ctx context.Context, cfg *config.Config, log *zap.Logger) (conv *sessions.Conversation, save func()) {
	limit := cfg.Agent.ExchangeLimit
	ephemeral := func() (*sessions.Conversation, func()) {
		return sessions.NewConversation(h.sessionID, limit), func() {}
	}
	if h.sessionID == "" {
		return ephemeral()
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Warn("open session store", zap.Error(err))
		return ephemeral()
	}
	conv, err = store.Load(ctx, h.sessionID, limit)
	if err != nil {
		log.Warn("load conversation", zap.String("session", h.sessionID), zap.Error(err))
		_ = store.Close()
		return ephemeral()
	}
	return conv, func() {
		defer store.Close()
		if err := store.Save(context.WithoutCancel(ctx), conv); err != nil {
			log.Warn("save conversation", zap.String("session", h.sessionID), zap.Error(err))
		}
	}
}

func failure(err error) string {
	return agent.Render(agent.Message("thinkshell: " + err.Error()))
}
