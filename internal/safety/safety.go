// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package safety is the hard gate every model-proposed command passes before
// it can reach a shell. Matching is purely textual: nothing here executes or
// interprets a command.
package safety

import (
	"regexp"
	"strings"
)

type rule struct {
	name string
	re   *regexp.Regexp
}

// forbidden operations, matched case-sensitively against the raw command text
var forbidden = []rule{
	{"recursive delete", regexp.MustCompile(`\brm\s+(-[a-zA-Z]+\s+)*-[a-zA-Z]*[rR][a-zA-Z]*\b`)},
	{"recursive delete", regexp.MustCompile(`\brm\s+.*--recursive\b`)},
	{"raw disk write", regexp.MustCompile(`\bdd\s+if=`)},
	{"filesystem format", regexp.MustCompile(`\bmkfs(\.\w+)?\b`)},
	{"shutdown", regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`)},
	{"redirect to root", regexp.MustCompile(`>\s*/[^/\s;&|]*(\s|;|&|\||$)`)},
	{"pipe to shell", regexp.MustCompile(`\|\s*(sh|bash|zsh)\b`)},
	{"fork bomb", regexp.MustCompile(`(\w+|:)\(\)\s*\{.*\|.*&\s*\}\s*;\s*(\w+|:)`)},
	{"recursive permission change on /", regexp.MustCompile(`\bch(mod|own|grp)\s+([^;&|]*\s)?-[a-zA-Z]*R[a-zA-Z]*\s+([^;&|]*\s)?/\*?(\s|;|&|\||$)`)},
	{"recursive permission change on /", regexp.MustCompile(`\bchmod\s+-R\s+777\s+/\b`)},
	{"wildcard permission change on /", regexp.MustCompile(`\bch(mod|own|grp)\s+[^;&|]*\s/\*`)},
	{"move of root-level path", regexp.MustCompile(`\bmv\s+/\b`)},
	{"redirect to block device", regexp.MustCompile(`>\s*/dev/(sd[a-z]|hd[a-z]|vd[a-z]|xvd[a-z]|nvme\d|mmcblk\d|disk\d)`)},
}

// sensitive locations, matched against separator-normalized paths
var sensitive = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)\.ssh(/|$)`),
	regexp.MustCompile(`(^|/)\.aws(/|$)`),
	regexp.MustCompile(`(^|/)\.azure(/|$)`),
	regexp.MustCompile(`(^|/)\.config/gcloud(/|$)`),
	regexp.MustCompile(`(^|/)\.gnupg(/|$)`),
	regexp.MustCompile(`(^|/)\.env$`),
	regexp.MustCompile(`\.pem$`),
	regexp.MustCompile(`\.key$`),
	regexp.MustCompile(`id_(rsa|dsa|ecdsa|ed25519)$`),
}

// IsRuntimeSafe reports whether command matches none of the forbidden
// operation patterns.
func IsRuntimeSafe(command string) bool {
	return Violation(command) == ""
}

// Violation returns the name of the first forbidden pattern command matches,
// or "" when it matches none.
func Violation(command string) string {
	for _, r := range forbidden {
		if r.re.MatchString(command) {
			return r.name
		}
	}
	return ""
}

// IsSensitivePath reports whether path names or lies under a
// credential-bearing location.
func IsSensitivePath(path string) bool {
	norm := strings.ReplaceAll(path, `\`, "/")
	for _, re := range sensitive {
		if re.MatchString(norm) {
			return true
		}
	}
	return false
}
