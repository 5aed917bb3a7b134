// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package agent

import (
	"strings"

	"github.com/hyper-ai-inc/thinkshell/internal/shellquote"
)

// Mode says how the hook should present a Result in the live shell.
type Mode int

const (
	// ModeNone produces no output; the shell reports "command not found".
	ModeNone Mode = iota
	// ModeMessage prints Text.
	ModeMessage
	// ModeOutput prints captured command output in Text, then runs Commands
	// in the live shell.
	ModeOutput
	// ModeConfirm prints Text and Commands, asks for confirmation and runs
	// Commands fail-fast.
	ModeConfirm
	// ModeAsk prints the question in Text, reads one answer and resolves
	// Intent again with the answer attached.
	ModeAsk
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeMessage:
		return "message"
	case ModeOutput:
		return "output"
	case ModeConfirm:
		return "confirm"
	case ModeAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// Result is the outcome of one command-resolution cycle.
type Result struct {
	Mode     Mode
	Text     string
	Commands []string
	Intent   string
}

// Message is a Result that only prints text.
func Message(text string) Result {
	return Result{Mode: ModeMessage, Text: text}
}

// AnswerSeparator joins the original intent and the user's answer.
const AnswerSeparator = "\n\nUSER_ANSWER: "

// Render turns r into shell text for the hook to evaluate. It is the only
// place that produces shell source from a Result.
func Render(r Result) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	switch r.Mode {
	case ModeMessage:
		line("printf '%s\\n' " + shellquote.Quote(r.Text))

	case ModeOutput:
		if r.Text != "" {
			line("printf '%s\\n' " + shellquote.Quote(r.Text))
		}
		if len(r.Commands) > 0 {
			line(`if [ -n "${THINKSHELL_DEFER:-}" ]; then`)
			line(`    printf '%s\n' ` + shellquote.Join(r.Commands...) + ` >> "$THINKSHELL_DEFER"`)
			line("else")
			for _, c := range r.Commands {
				line(c)
			}
			line("fi")
		}
		if b.Len() == 0 {
			line(":")
		}

	case ModeConfirm:
		line("printf '%s\\n' " + shellquote.Quote("Review required: "+r.Text))
		line("printf '%s\\n' 'Proposed commands:'")
		line("printf '  %s\\n' " + shellquote.Join(r.Commands...))
		line("read -r -p 'Proceed? [y/N] ' TS_PROCEED")
		line(`case "$TS_PROCEED" in`)
		line("    y|Y|yes|YES)")
		line("        _thinkshell_review() {")
		for _, c := range r.Commands {
			line("            { " + c)
			line("            } || return $?")
		}
		line("        }")
		line("        _thinkshell_review")
		line("        TS_STATUS=$?")
		line("        unset -f _thinkshell_review")
		line(`        (exit "$TS_STATUS")`)
		line("        ;;")
		line("    *) printf '%s\\n' 'Aborted.' ;;")
		line("esac")

	case ModeAsk:
		line("printf '%s\\n' " + shellquote.Quote(r.Text))
		line("read -r -p '> ' TS_ANSWER")
		line("TS_FOLLOWUP=" + shellquote.Quote(r.Intent))
		line(`TS_NEW_QUERY="$TS_FOLLOWUP"$'\n\nUSER_ANSWER: '"$TS_ANSWER"`)
		line(`TS_RESPONSE="$("$THINKSHELL_EXE" "$THINKSHELL_ENTRY" FAIL "$TS_NEW_QUERY")"`)
		line(`if [ -n "$TS_RESPONSE" ]; then eval "$TS_RESPONSE"; fi`)
	}
	return b.String()
}
