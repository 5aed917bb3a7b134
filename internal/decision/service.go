// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package decision talks to the remote decision service: it frames the
// pending conversation delta, parses the reply into an Action, and stages
// files the service asks to analyze.
package decision

import (
	"context"

	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
)

// Format selects the reply format requested from the service.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Request is one call to the decision service. Handle continues an existing
// remote conversation; empty starts a new one.
type Request struct {
	Handle   string
	Messages []sessions.Message
	Format   Format
}

// Reply carries the service's text output and the handle that continues the
// conversation it belongs to.
type Reply struct {
	Handle string
	Text   string
}

// Service is the remote decision service contract.
type Service interface {
	Respond(ctx context.Context, req Request) (Reply, error)
	// StageFile uploads the file at path and returns an opaque reference id.
	StageFile(ctx context.Context, path, purpose string) (string, error)
}
