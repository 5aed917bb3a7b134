// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package pty

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var ErrNotTerminal = errors.New("not a terminal")

// Terminal holds a controlling terminal in raw mode until Restore.
type Terminal struct {
	fd    int
	state *term.State
	saved unix.Termios

	once sync.Once
	err  error
}

// MakeRaw puts f into raw mode and records its prior attributes.
func MakeRaw(f *os.File) (*Terminal, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s: %w", f.Name(), ErrNotTerminal)
	}
	saved, err := Attributes(f)
	if err != nil {
		return nil, err
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	return &Terminal{fd: fd, state: state, saved: saved}, nil
}

// Restore puts the terminal back the way MakeRaw found it. Only the first
// call has any effect.
func (t *Terminal) Restore() error {
	t.once.Do(func() {
		t.err = term.Restore(t.fd, t.state)
	})
	return t.err
}

// Saved returns the attributes captured before raw mode was entered.
func (t *Terminal) Saved() unix.Termios {
	return t.saved
}

// Attributes reads the current termios of f.
func Attributes(f *os.File) (unix.Termios, error) {
	tio, err := unix.IoctlGetTermios(int(f.Fd()), ioctlReadTermios)
	if err != nil {
		return unix.Termios{}, fmt.Errorf("read terminal attributes: %w", err)
	}
	return *tio, nil
}
