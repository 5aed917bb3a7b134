// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package decision

import (
	"context"

	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
	"go.uber.org/zap"
)

// Client drives a Service on behalf of one Conversation. Its methods never
// return transport or parse errors to the caller as errors: a failed
// decision becomes a Block action.
type Client struct {
	svc Service
	log *zap.Logger
}

func NewClient(svc Service, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{svc: svc, log: log}
}

// Decide sends the conversation's pending messages and returns the parsed
// decision. A failed call that would have opened the remote conversation
// leaves the cursor in place so the seed goes out with the next attempt;
// otherwise the cursor advances whether or not the call succeeds.
func (c *Client) Decide(ctx context.Context, conv *sessions.Conversation) Action {
	reply, err := c.svc.Respond(ctx, Request{
		Handle:   conv.Handle,
		Messages: conv.Pending(),
		Format:   FormatJSON,
	})
	if err != nil {
		if conv.Handle != "" {
			conv.MarkSent()
		}
		c.log.Warn("decision request failed", zap.String("session", conv.ID), zap.Error(err))
		return Block("LLM Error: " + err.Error())
	}

	conv.Handle = reply.Handle
	conv.Append(sessions.Message{Role: sessions.RoleAssistant, Content: reply.Text})
	conv.MarkSent()

	action, err := Parse(reply.Text)
	if err != nil {
		c.log.Warn("decision reply rejected", zap.String("session", conv.ID), zap.Error(err))
		return Block("LLM Error: " + err.Error())
	}
	c.log.Debug("decision",
		zap.String("session", conv.ID),
		zap.String("action", action.Tag),
		zap.Int("commands", len(action.Commands)),
	)
	return action
}

// Summarize asks the service to summarize the remote conversation. It
// returns an empty summary when there is no remote conversation yet.
func (c *Client) Summarize(ctx context.Context, conv *sessions.Conversation) (string, error) {
	if conv.Handle == "" {
		return "", nil
	}
	reply, err := c.svc.Respond(ctx, Request{
		Handle:   conv.Handle,
		Messages: []sessions.Message{{Role: sessions.RoleUser, Content: SummaryRequest}},
		Format:   FormatText,
	})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Stage uploads a file and returns its reference id.
func (c *Client) Stage(ctx context.Context, path, purpose string) (string, error) {
	id, err := c.svc.StageFile(ctx, path, purpose)
	if err != nil {
		c.log.Warn("stage file failed", zap.String("path", path), zap.Error(err))
		return "", err
	}
	return id, nil
}
