// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

//go:build linux

package pty

import "golang.org/x/sys/unix"

const ioctlReadTermios = unix.TCGETS
