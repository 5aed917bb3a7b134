// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package pty

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

// Geometry used when the controlling terminal reports zero rows or columns.
const (
	DefaultRows = 24
	DefaultCols = 80
)

// CopySize copies the window geometry of from onto to, substituting the
// defaults for zero dimensions.
func CopySize(from, to *os.File) error {
	ws, err := pty.GetsizeFull(from)
	if err != nil {
		return err
	}
	if ws.Rows == 0 {
		ws.Rows = DefaultRows
	}
	if ws.Cols == 0 {
		ws.Cols = DefaultCols
	}
	return pty.Setsize(to, ws)
}

// Relay copies the controlling terminal's geometry onto the PTY on every
// SIGWINCH.
type Relay struct {
	from, to *os.File
	log      *zap.Logger

	sigs chan os.Signal
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewRelay(from, to *os.File, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		from: from,
		to:   to,
		log:  log,
		sigs: make(chan os.Signal, 1),
		stop: make(chan struct{}),
	}
}

// Start subscribes to SIGWINCH before returning and relays in the
// background until Stop.
func (r *Relay) Start() {
	signal.Notify(r.sigs, syscall.SIGWINCH)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.stop:
				return
			case <-r.sigs:
				if err := CopySize(r.from, r.to); err != nil {
					r.log.Debug("resize relay", zap.Error(err))
				}
			}
		}
	}()
}

// Stop unsubscribes and waits for the relay goroutine to finish.
func (r *Relay) Stop() {
	r.once.Do(func() {
		signal.Stop(r.sigs)
		close(r.stop)
		r.wg.Wait()
	})
}
