// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package pty

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hyper-ai-inc/thinkshell/internal/shellquote"
)

// Environment handed to the shell so the hook can call back into thinkshell.
const (
	EnvExe       = "THINKSHELL_EXE"
	EnvEntry     = "THINKSHELL_ENTRY"
	EnvSessionID = "THINKSHELL_SESSION_ID"
	EnvDefer     = "THINKSHELL_DEFER"

	// HookEntry is the subcommand the hook invokes.
	HookEntry = "hook"
	// DefaultPrompt is a blue "ThinkShell" followed by "$ ".
	DefaultPrompt = `\[\033[1;34m\]ThinkShell\[\033[0m\] $ `
)

var bashCandidates = []string{
	"/opt/homebrew/bin/bash",
	"/usr/local/bin/bash",
	"/bin/bash",
}

// FindBash returns the preferred bash binary. Newer package-manager builds
// come first since the hook needs bash 4 or later.
func FindBash() string {
	for _, p := range bashCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p, err := exec.LookPath("bash"); err == nil {
		return p
	}
	return "/bin/bash"
}

// Shell describes the interactive shell to start.
type Shell struct {
	Path      string
	Prompt    string
	Exe       string
	SessionID string
	// Dir holds the rc file and the deferred-command file.
	Dir string
}

// RCPath is the bootstrap rc file inside s.Dir.
func (s Shell) RCPath() string { return filepath.Join(s.Dir, "bashrc") }

// DeferPath is where hook output queues commands for the live shell.
func (s Shell) DeferPath() string { return filepath.Join(s.Dir, "defer.sh") }

// WriteRC writes the bootstrap rc file.
func (s Shell) WriteRC() error {
	return os.WriteFile(s.RCPath(), []byte(Bootstrap(s.Prompt)), 0o600)
}

// Command builds the interactive shell command.
func (s Shell) Command() *exec.Cmd {
	path := s.Path
	if path == "" {
		path = FindBash()
	}
	cmd := exec.Command(path, "--noprofile", "--rcfile", s.RCPath(), "-i")
	cmd.Env = s.environ(os.Environ())
	return cmd
}

func (s Shell) environ(base []string) []string {
	env := make([]string, 0, len(base)+5)
	hasTerm := false
	for _, kv := range base {
		switch {
		case strings.HasPrefix(kv, EnvExe+"="),
			strings.HasPrefix(kv, EnvEntry+"="),
			strings.HasPrefix(kv, EnvSessionID+"="),
			strings.HasPrefix(kv, EnvDefer+"="):
			continue
		case strings.HasPrefix(kv, "TERM="):
			hasTerm = kv != "TERM="
			if !hasTerm {
				continue
			}
		}
		env = append(env, kv)
	}
	if !hasTerm {
		env = append(env, "TERM=xterm-256color")
	}
	return append(env,
		EnvExe+"="+s.Exe,
		EnvEntry+"="+HookEntry,
		EnvSessionID+"="+s.SessionID,
		EnvDefer+"="+s.DeferPath(),
	)
}

// Bootstrap returns the rc script that sources the user's bash config and
// installs the command-not-found hook.
//
// bash runs command_not_found_handle in a subshell, so output that must
// change the live shell (cd, export, ...) is queued in $THINKSHELL_DEFER and
// sourced from PROMPT_COMMAND.
func Bootstrap(prompt string) string {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return fmt.Sprintf(bootstrapTemplate, shellquote.Quote(prompt))
}

const bootstrapTemplate = `[ -f /etc/bashrc ] && source /etc/bashrc
[ -f ~/.bashrc ] && source ~/.bashrc

command_not_found_handle() {
    local cmd="$1"
    local ts_response
    ts_response="$("$THINKSHELL_EXE" "$THINKSHELL_ENTRY" FAIL "$*")"
    if [ -n "$ts_response" ]; then
        eval "$ts_response"
        return
    fi
    printf 'bash: %%s: command not found\n' "$cmd" >&2
    return 127
}

_thinkshell_apply() {
    local ts_status=$?
    if [ -n "${THINKSHELL_DEFER:-}" ] && [ -s "$THINKSHELL_DEFER" ]; then
        local ts_run="$THINKSHELL_DEFER.run"
        mv -f "$THINKSHELL_DEFER" "$ts_run" && source "$ts_run"
        rm -f "$ts_run"
    fi
    return $ts_status
}
PROMPT_COMMAND="_thinkshell_apply${PROMPT_COMMAND:+; $PROMPT_COMMAND}"

if ((BASH_VERSINFO[0] < 4)); then
    _thinkshell_fallback() {
        local ts_status=$?
        if [ $ts_status -eq 127 ]; then
            local last
            last="$(HISTTIMEFORMAT= history 1 | sed 's/^[ ]*[0-9]*[ ]*//')"
            if [ -n "$last" ]; then
                local fix
                fix="$("$THINKSHELL_EXE" "$THINKSHELL_ENTRY" FAIL "$last")"
                [ -n "$fix" ] && eval "$fix"
            fi
        fi
        return $ts_status
    }
    PROMPT_COMMAND="_thinkshell_fallback; $PROMPT_COMMAND"
fi

PS1=%s
`
