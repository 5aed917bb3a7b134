// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package agent resolves a command the shell could not run into a Result by
// looping with the decision service: it runs read-only probes and stages
// files on the service's behalf until the service settles on an action the
// user sees.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hyper-ai-inc/thinkshell/internal/decision"
	"github.com/hyper-ai-inc/thinkshell/internal/safety"
	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
	"go.uber.org/zap"
)

const DefaultMaxRounds = 12

// User-visible outcomes.
const (
	msgTimedOut       = "Agent timed out."
	msgBlocked        = "Action blocked."
	msgNoCommands     = "No commands provided."
	msgReviewBlocked  = "Execution blocked by runtime safety guard."
	msgExecuteBlocked = "Execution blocked by runtime safety guard, for command : "
	msgNeedInfo       = "Need more information."
	msgConfirm        = "Confirmation needed."

	obsRepeated = "ERROR: repeated inspection detected"
	obsBlocked  = "BLOCKED: runtime safety guard"
)

// stateBuiltins change the shell that runs them and so must run in the live
// shell rather than a captured subprocess.
var stateBuiltins = map[string]bool{
	"cd": true, "export": true, "source": true, ".": true, "alias": true,
	"unset": true, "pushd": true, "popd": true, "set": true, "unalias": true,
}

// Decider is the part of decision.Client the controller needs.
type Decider interface {
	Decide(ctx context.Context, conv *sessions.Conversation) decision.Action
	Summarize(ctx context.Context, conv *sessions.Conversation) (string, error)
	Stage(ctx context.Context, path, purpose string) (string, error)
}

// Options bounds a Controller. Zero values select the defaults.
type Options struct {
	MaxRounds      int
	MaxUploads     int
	MaxUploadBytes int64
	UploadPurpose  string
	// Notices receives progress lines such as "Inspecting command: ...".
	Notices io.Writer
	Log     *zap.Logger
}

// Controller runs command-resolution cycles.
type Controller struct {
	decider Decider
	runner  *Runner
	opts    Options
	log     *zap.Logger
}

func NewController(decider Decider, runner *Runner, opts Options) *Controller {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.MaxUploads <= 0 {
		opts.MaxUploads = DefaultMaxUploads
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.UploadPurpose == "" {
		opts.UploadPurpose = DefaultUploadPurpose
	}
	if opts.Notices == nil {
		opts.Notices = io.Discard
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if runner == nil {
		runner = &Runner{}
	}
	return &Controller{decider: decider, runner: runner, opts: opts, log: log}
}

// cycle holds the per-invocation ledgers.
type cycle struct {
	inspected map[string]bool
	staged    map[string]bool
}

type inspection struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

type upload struct {
	Path   string `json:"path"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Resolve runs one cycle for intent against conv. conv is mutated and must
// be persisted by the caller afterwards.
func (c *Controller) Resolve(ctx context.Context, conv *sessions.Conversation, intent string) Result {
	c.prepare(ctx, conv)
	conv.Append(sessions.Message{Role: sessions.RoleUser, Content: decision.PrefixIntent + intent})

	cy := &cycle{inspected: map[string]bool{}, staged: map[string]bool{}}
	for round := 0; round < c.opts.MaxRounds; round++ {
		action := c.decider.Decide(ctx, conv)
		c.log.Debug("round", zap.Int("round", round), zap.String("action", action.Tag))

		switch action.Kind {
		case decision.KindInspect:
			c.inspect(ctx, conv, cy, action.Commands)
		case decision.KindUpload:
			c.upload(ctx, conv, cy, action.Commands)
		case decision.KindAsk:
			return Result{Mode: ModeAsk, Text: orDefault(action.Reason, msgNeedInfo), Intent: intent}
		case decision.KindReview:
			return c.review(action)
		case decision.KindExecute:
			return c.execute(ctx, action.Commands)
		case decision.KindBlock:
			return Message(orDefault(action.Reason, msgBlocked))
		default:
			conv.Append(sessions.Message{Role: sessions.RoleUser, Content: decision.InvalidAction})
		}
	}
	c.log.Warn("round limit reached", zap.String("session", conv.ID), zap.Int("rounds", c.opts.MaxRounds))
	return Message(msgTimedOut)
}

// prepare seeds a fresh conversation, replaces the history with a summary
// once the exchange limit has been passed, and counts the new exchange.
func (c *Controller) prepare(ctx context.Context, conv *sessions.Conversation) {
	if conv.Empty() {
		conv.Append(decision.SeedMessages()...)
	}
	if conv.NeedsReset() {
		seed := decision.SeedMessages()
		summary, err := c.decider.Summarize(ctx, conv)
		if err != nil {
			c.log.Warn("summary failed, resetting without it", zap.String("session", conv.ID), zap.Error(err))
		} else if strings.TrimSpace(summary) != "" {
			seed = append(seed, sessions.Message{Role: sessions.RoleSystem, Content: decision.PrefixSummary + summary})
		}
		conv.Reset(seed)
	}
	conv.Begin()
}

func (c *Controller) inspect(ctx context.Context, conv *sessions.Conversation, cy *cycle, commands []string) {
	results := make([]inspection, 0, len(commands))
	for _, cmd := range commands {
		switch {
		case cy.inspected[cmd]:
			results = append(results, inspection{cmd, obsRepeated})
		case !safety.IsRuntimeSafe(cmd):
			c.log.Info("inspection blocked", zap.String("command", cmd), zap.String("rule", safety.Violation(cmd)))
			results = append(results, inspection{cmd, obsBlocked})
		default:
			cy.inspected[cmd] = true
			c.notice("Inspecting command: %s", cmd)
			results = append(results, inspection{cmd, c.runner.Run(ctx, cmd)})
		}
	}
	conv.Append(sessions.Message{Role: sessions.RoleUser, Content: decision.PrefixInspection + marshal(results)})
}

func (c *Controller) upload(ctx context.Context, conv *sessions.Conversation, cy *cycle, paths []string) {
	if len(paths) > c.opts.MaxUploads {
		paths = paths[:c.opts.MaxUploads]
	}

	results := make([]upload, 0, len(paths))
	var files []sessions.FileRef
	for _, path := range paths {
		if cy.staged[path] {
			continue
		}
		if err := validateUpload(path, c.opts.MaxUploadBytes); err != nil {
			c.notice("Upload rejected %s: %v", path, err)
			results = append(results, upload{Path: path, Result: ValidationFailed, Error: err.Error()})
			continue
		}

		c.notice("Uploading file %s", path)
		id, err := c.decider.Stage(ctx, path, c.opts.UploadPurpose)
		if err != nil {
			results = append(results, upload{Path: path, Result: UploadFailed, Error: err.Error()})
			continue
		}
		cy.staged[path] = true
		results = append(results, upload{Path: path, Result: id})
		files = append(files, sessions.FileRef{ID: id, Filename: filepath.Base(path)})
	}

	conv.Append(sessions.Message{
		Role:    sessions.RoleUser,
		Content: decision.PrefixUploads + marshal(results),
		Files:   files,
	})
}

func (c *Controller) review(action decision.Action) Result {
	for _, cmd := range action.Commands {
		if !safety.IsRuntimeSafe(cmd) {
			c.log.Info("review blocked", zap.String("command", cmd), zap.String("rule", safety.Violation(cmd)))
			return Message(msgReviewBlocked)
		}
	}
	if len(action.Commands) == 0 {
		return Message(msgNoCommands)
	}
	return Result{Mode: ModeConfirm, Text: orDefault(action.Reason, msgConfirm), Commands: action.Commands}
}

func (c *Controller) execute(ctx context.Context, commands []string) Result {
	if len(commands) == 0 {
		return Message(msgNoCommands)
	}
	for _, cmd := range commands {
		if !safety.IsRuntimeSafe(cmd) {
			c.log.Info("execute blocked", zap.String("command", cmd), zap.String("rule", safety.Violation(cmd)))
			return Message(msgExecuteBlocked + cmd)
		}
	}

	var outputs []string
	for i, cmd := range commands {
		if changesShellState(cmd) {
			return Result{Mode: ModeOutput, Text: strings.Join(outputs, "\n"), Commands: commands[i:]}
		}
		c.notice("Executing command : %s", cmd)
		if out := c.runner.Run(ctx, cmd); out != "" {
			outputs = append(outputs, out)
		}
	}
	return Result{Mode: ModeOutput, Text: strings.Join(outputs, "\n")}
}

func (c *Controller) notice(format string, args ...any) {
	fmt.Fprintf(c.opts.Notices, format+"\n", args...)
}

// changesShellState reports whether cmd starts with a builtin whose effect
// must persist in the calling shell.
func changesShellState(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	word := strings.TrimRight(fields[0], ";")
	return stateBuiltins[word]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func marshal(v any) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return strings.TrimSuffix(b.String(), "\n")
}
