// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// exitGrace bounds how long forwarding continues after the shell exits.
const exitGrace = 200 * time.Millisecond

// Options configures a proxy session.
type Options struct {
	ShellPath string
	Prompt    string
	// Exe is the binary the hook calls back into.
	Exe    string
	Stdin  *os.File
	Stdout *os.File
	Log    *zap.Logger
}

// Session is one proxied interactive shell: the user's terminal in raw mode
// forwarding to a shell on a PTY.
type Session struct {
	ID string

	shell Shell
	term  *Terminal
	pty   *PTY
	relay *Relay
	fwd   *Forwarder
	log   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open puts opts.Stdin into raw mode and starts the shell. On error nothing
// is left acquired.
func Open(opts Options) (s *Session, err error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	dir, err := os.MkdirTemp("", "thinkshell-")
	if err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	sh := Shell{
		Path:      opts.ShellPath,
		Prompt:    opts.Prompt,
		Exe:       opts.Exe,
		SessionID: uuid.NewString(),
		Dir:       dir,
	}
	if err := sh.WriteRC(); err != nil {
		return nil, fmt.Errorf("write rc file: %w", err)
	}

	t, err := MakeRaw(opts.Stdin)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = t.Restore()
		}
	}()

	size, sizeErr := pty.GetsizeFull(opts.Stdin)
	if sizeErr != nil || size.Rows == 0 || size.Cols == 0 {
		size = &pty.Winsize{Rows: DefaultRows, Cols: DefaultCols}
	}
	p, err := Start(sh.Command(), size)
	if err != nil {
		return nil, fmt.Errorf("start shell: %w", err)
	}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	fwd, err := NewForwarder(opts.Stdin, opts.Stdout, p.File())
	if err != nil {
		return nil, err
	}

	log.Info("session opened",
		zap.String("session", sh.SessionID),
		zap.String("shell", sh.Command().Path),
		zap.Uint16("rows", size.Rows),
		zap.Uint16("cols", size.Cols),
	)
	return &Session{
		ID:    sh.SessionID,
		shell: sh,
		term:  t,
		pty:   p,
		relay: NewRelay(opts.Stdin, p.File(), log),
		fwd:   fwd,
		log:   log,
	}, nil
}

// Run forwards until the shell exits, either stream closes, or the session
// is closed. SIGINT delivered to the proxy is passed to the shell; SIGTERM
// and SIGHUP close the session.
func (s *Session) Run() error {
	s.relay.Start()

	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			select {
			case <-quit:
				return
			case <-s.pty.Done():
				// The loop normally ends on EIO once the last output is
				// drained; background jobs holding the PTY open must not
				// keep it alive.
				timer := time.NewTimer(exitGrace)
				defer timer.Stop()
				select {
				case <-quit:
				case <-timer.C:
					s.fwd.Stop()
				}
				return
			case sig := <-sigs:
				if sig == syscall.SIGINT {
					_ = s.pty.Signal(syscall.SIGINT)
					continue
				}
				s.log.Info("closing on signal", zap.String("signal", sig.String()))
				_ = s.Close()
				return
			}
		}
	}()

	err := s.fwd.Run()
	if errors.Is(err, os.ErrClosed) {
		err = nil
	}
	select {
	case <-s.pty.Done():
		s.logExit()
	default:
	}
	return err
}

// logExit records how the shell ended.
func (s *Session) logExit() {
	code := 0
	exitErr := s.pty.ExitErr()
	var ee *exec.ExitError
	if errors.As(exitErr, &ee) {
		code = ee.ExitCode()
	}
	s.log.Info("shell exited",
		zap.String("session", s.ID),
		zap.Int("code", code),
		zap.Error(exitErr),
	)
}

// Close stops forwarding, hangs up the shell and restores the terminal. It
// is safe to call more than once and from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.relay.Stop()
		s.fwd.Stop()
		errs := []error{
			s.pty.Close(),
			s.term.Restore(),
			os.RemoveAll(s.shell.Dir),
		}
		s.closeErr = errors.Join(errs...)
		s.log.Info("session closed", zap.String("session", s.ID), zap.Error(s.closeErr))
	})
	return s.closeErr
}
