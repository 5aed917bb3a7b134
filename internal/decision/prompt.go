// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package decision

import (
	"encoding/json"
	"runtime"

	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
	"golang.org/x/sys/unix"
)

// Message prefixes understood by the system instructions.
const (
	PrefixEnvironment = "OS_INFO: "
	PrefixIntent      = "ORIGINAL_INTENT: "
	PrefixInspection  = "INSPECTION_RESULT: "
	PrefixUploads     = "UPLOADED_FILES: "
	PrefixSummary     = "SESSION_SUMMARY: "
	InvalidAction     = "INVALID_ACTION: Return a valid action enum."
	SummaryRequest    = "Summarize the session so far for future continuation."
)

const systemInstructions = `You are a shell decision agent running behind a bash command_not_found hook.
The user typed a line the shell could not resolve; it arrives as ORIGINAL_INTENT.
Reply with exactly one JSON object and nothing else:
{"action": "INSPECT"|"EXECUTE"|"REVIEW"|"ASK"|"UPLOAD"|"BLOCK", "commands": [string], "reason": string|null}

INSPECT  read-only probes you need before deciding (reason null). Results come back as INSPECTION_RESULT.
EXECUTE  safe, complete, non-interactive commands that fulfil the request (reason null).
REVIEW   destructive or impactful commands the user must confirm; reason explains the risk and any rollback.
ASK      one focused clarifying question in reason; commands empty. The answer returns as USER_ANSWER.
UPLOAD   explicit file paths (no globs, directories or shell syntax, max 10) whose content you must read; reason says why.
         Files come back as UPLOADED_FILES with file references. Never request the same file twice.
BLOCK    the request is unsafe (secrets, malware, exfiltration, privilege abuse); reason explains.

Never request credentials, SSH or cloud keys, .env files, *.pem or *.key files.
Never mix actions. Prefer INSPECT over assuming state and ASK over guessing.
Commands must be POSIX shell compatible; quote variables and use $() for substitution.
Resolve relative paths before destructive operations; if a target resolves to /, BLOCK.
SESSION_SUMMARY, when present, describes earlier work in this shell.`

// SeedMessages returns the messages that open every remote conversation.
func SeedMessages() []sessions.Message {
	return []sessions.Message{
		{Role: sessions.RoleSystem, Content: systemInstructions},
		{Role: sessions.RoleSystem, Content: PrefixEnvironment + Environment()},
	}
}

// Environment describes the host the commands will run on.
func Environment() string {
	info := map[string]string{
		"OSName":  runtime.GOOS,
		"Machine": runtime.GOARCH,
	}
	var u unix.Utsname
	if err := unix.Uname(&u); err == nil {
		info["OSName"] = unix.ByteSliceToString(u.Sysname[:])
		info["Release"] = unix.ByteSliceToString(u.Release[:])
		info["OSVersion"] = unix.ByteSliceToString(u.Version[:])
		info["Machine"] = unix.ByteSliceToString(u.Machine[:])
	}
	b, _ := json.Marshal(info)
	return string(b)
}
