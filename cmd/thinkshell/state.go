// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package main

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyper-ai-inc/thinkshell/internal/config"
	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
)

const (
	storeFile = "sessions.db"

	// Conversations of shells that died without cleaning up are dropped
	// after this long.
	staleAfter = 7 * 24 * time.Hour
)

func openStore(cfg *config.Config) (*sessions.Store, error) {
	return sessions.Open(filepath.Join(cfg.State.Dir, storeFile))
}

// forget drops the conversation of a finished shell session and prunes
// stale ones.
func forget(cfg *config.Config, id string, log *zap.Logger) {
	store, err := openStore(cfg)
	if err != nil {
		log.Warn("open session store", zap.Error(err))
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Delete(ctx, id); err != nil {
		log.Warn("delete conversation", zap.String("session", id), zap.Error(err))
	}
	n, err := store.Prune(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		log.Warn("prune conversations", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("pruned stale conversations", zap.Int("count", n))
	}
}
