// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

//go:build darwin || freebsd || netbsd || openbsd

package pty

import "golang.org/x/sys/unix"

// BSD-derived kernels name the termios read ioctl TIOCGETA.
const ioctlReadTermios = unix.TIOCGETA
