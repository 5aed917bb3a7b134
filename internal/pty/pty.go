// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package pty runs the interactive shell behind a pseudo-terminal and
// proxies the user's terminal to it.
package pty

import (
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// PTY is a shell process attached to the slave side of a pseudo-terminal.
type PTY struct {
	file *os.File
	cmd  *exec.Cmd
	done chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// Start launches cmd on a new PTY with the given initial geometry.
func Start(cmd *exec.Cmd, size *pty.Winsize) (*PTY, error) {
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, err
	}

	p := &PTY{
		file: ptmx,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

// File returns the master side of the PTY.
func (p *PTY) File() *os.File {
	return p.file
}

// Signal delivers sig the way the terminal would: to the PTY's foreground
// process group, so a running job sees it before the shell does. It falls
// back to the shell process when the group cannot be read.
func (p *PTY) Signal(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return os.ErrClosed
	}
	if p.cmd.Process == nil {
		return os.ErrProcessDone
	}
	if pgrp, err := unix.IoctlGetInt(int(p.file.Fd()), unix.TIOCGPGRP); err == nil && pgrp > 0 {
		return unix.Kill(-pgrp, sig)
	}
	return p.cmd.Process.Signal(sig)
}

// Done is closed when the shell process exits.
func (p *PTY) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the shell's exit error once Done is closed, nil before.
func (p *PTY) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close hangs up the shell and releases the PTY.
func (p *PTY) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	select {
	case <-p.done:
	default:
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Signal(syscall.SIGHUP)
		}
	}
	return p.file.Close()
}
