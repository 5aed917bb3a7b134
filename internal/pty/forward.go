// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package pty

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const forwardBufSize = 32 * 1024

// Forwarder copies terminal input to the PTY and PTY output to the terminal
// from a single poll(2) loop.
type Forwarder struct {
	in, out, pty int

	wakeR, wakeW *os.File
	once         sync.Once
}

// NewForwarder prepares a loop over in -> ptmx and ptmx -> out.
func NewForwarder(in, out, ptmx *os.File) (*Forwarder, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Forwarder{
		in:    int(in.Fd()),
		out:   int(out.Fd()),
		pty:   int(ptmx.Fd()),
		wakeR: r,
		wakeW: w,
	}, nil
}

// Run forwards until either side reaches EOF or fails, or Stop is called.
// EOF, EIO (the shell hung up) and EBADF (the PTY was closed) end the loop
// without error.
func (f *Forwarder) Run() error {
	defer f.wakeR.Close()

	fds := []unix.PollFd{
		{Fd: int32(f.in), Events: unix.POLLIN},
		{Fd: int32(f.pty), Events: unix.POLLIN},
		{Fd: int32(f.wakeR.Fd()), Events: unix.POLLIN},
	}
	buf := make([]byte, forwardBufSize)

	for {
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if fds[2].Revents != 0 {
			return nil
		}
		if ready(fds[0].Revents) {
			if done, err := pump(f.in, f.pty, buf); done {
				return err
			}
		}
		if ready(fds[1].Revents) {
			if done, err := pump(f.pty, f.out, buf); done {
				return err
			}
		}
	}
}

// Stop wakes Run and makes it return.
func (f *Forwarder) Stop() {
	f.once.Do(func() {
		_, _ = f.wakeW.Write([]byte{0})
		_ = f.wakeW.Close()
	})
}

func ready(revents int16) bool {
	return revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}

// pump moves one read's worth of bytes from src to dst. done reports that
// the loop should end.
func pump(src, dst int, buf []byte) (done bool, err error) {
	n, err := unix.Read(src, buf)
	switch {
	case errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN):
		return false, nil
	case errors.Is(err, unix.EIO) || errors.Is(err, unix.EBADF):
		return true, nil
	case err != nil:
		return true, err
	case n == 0:
		return true, nil
	}
	if err := writeAll(dst, buf[:n]); err != nil {
		return true, err
	}
	return false, nil
}

func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}
