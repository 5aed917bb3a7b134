// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package sessions holds the conversation state shared by every hook
// invocation of one interactive shell session.
//
// The shell hook starts a fresh process for each unresolved command, so the
// remote conversation handle, the exchange counter and the message log live
// in a Conversation that is loaded from and saved to a Store around each
// invocation. The proxy that owns the shell deletes the conversation when the
// shell exits.
package sessions

import (
	"time"
)

// DefaultExchangeLimit is the number of command-resolution cycles a remote
// conversation may serve before it is summarized and restarted.
const DefaultExchangeLimit = 20

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FileRef points at a file staged with the decision service.
type FileRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Message is one entry in the conversation log. Files carries staged file
// references that are sent alongside Content rather than inlined in it.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Files   []FileRef `json:"files,omitempty"`
}

// Conversation is the state of one remote decision conversation.
//
// Messages is append-only between resets. Sent is the index of the first
// message not yet transmitted; only Messages[Sent:] go out on the next call
// because the remote side keeps the earlier ones behind Handle.
type Conversation struct {
	ID        string
	Handle    string
	Exchanges int
	Limit     int
	Messages  []Message
	Sent      int
	UpdatedAt time.Time
}

// NewConversation returns an empty conversation. A non-positive limit selects
// DefaultExchangeLimit.
func NewConversation(id string, limit int) *Conversation {
	if limit <= 0 {
		limit = DefaultExchangeLimit
	}
	return &Conversation{
		ID:        id,
		Limit:     limit,
		UpdatedAt: time.Now(),
	}
}

// Append adds messages to the end of the log.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Pending returns the messages not yet sent.
func (c *Conversation) Pending() []Message {
	if c.Sent >= len(c.Messages) {
		return nil
	}
	out := make([]Message, len(c.Messages)-c.Sent)
	copy(out, c.Messages[c.Sent:])
	return out
}

// MarkSent advances the cursor past every message currently in the log.
func (c *Conversation) MarkSent() {
	c.Sent = len(c.Messages)
}

// Empty reports whether nothing has been logged since creation or the last
// reset.
func (c *Conversation) Empty() bool {
	return len(c.Messages) == 0
}

// Begin counts a new command-resolution cycle.
func (c *Conversation) Begin() {
	c.Exchanges++
	c.UpdatedAt = time.Now()
}

// NeedsReset reports whether the exchange counter has passed the limit. It is
// checked before Begin, so with a limit of 20 the 22nd exchange is the first
// to start from a summary.
func (c *Conversation) NeedsReset() bool {
	return c.Exchanges > c.Limit
}

// Reset discards the detailed history and the remote handle and seeds a new
// conversation with the given messages, all unsent.
func (c *Conversation) Reset(seed []Message) {
	c.Handle = ""
	c.Exchanges = 0
	c.Sent = 0
	c.Messages = append([]Message(nil), seed...)
	c.UpdatedAt = time.Now()
}
