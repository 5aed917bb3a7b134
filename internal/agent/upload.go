// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyper-ai-inc/thinkshell/internal/safety"
)

const (
	DefaultMaxUploads     = 10
	DefaultMaxUploadBytes = 250000
	DefaultUploadPurpose  = "assistants"

	// Markers recorded in place of a file id.
	UploadFailed     = "UPLOAD_FAILED"
	ValidationFailed = "VALIDATION_FAILED"
)

var (
	errNotFound     = errors.New("file not found")
	errNotRegular   = errors.New("not a regular file")
	errSensitive    = errors.New("sensitive file blocked")
	errTooLarge     = errors.New("file too large")
	errUnsafeSyntax = errors.New("path contains glob or shell syntax")
)

// Characters that mean the path is a pattern or shell expression rather
// than a literal file name.
const pathMetachars = "*?[]{}|;&<>$`\n\r"

// validateUpload checks that path names an existing, regular,
// non-sensitive file no larger than maxBytes.
func validateUpload(path string, maxBytes int64) error {
	if strings.TrimSpace(path) == "" || strings.ContainsAny(path, pathMetachars) {
		return errUnsafeSyntax
	}
	if safety.IsSensitivePath(path) {
		return errSensitive
	}
	if abs, err := filepath.Abs(path); err == nil && safety.IsSensitivePath(abs) {
		return errSensitive
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil && safety.IsSensitivePath(resolved) {
		return errSensitive
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return errNotFound
	}
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return errNotRegular
	}
	if info.Size() > maxBytes {
		return fmt.Errorf("%w: %d bytes", errTooLarge, info.Size())
	}
	return nil
}
