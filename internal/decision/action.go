// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package decision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the tag of a decision Action.
type Kind string

const (
	KindInspect Kind = "INSPECT"
	KindExecute Kind = "EXECUTE"
	KindReview  Kind = "REVIEW"
	KindAsk     Kind = "ASK"
	KindUpload  Kind = "UPLOAD"
	KindBlock   Kind = "BLOCK"
	// KindUnknown marks a well-formed reply whose tag is none of the above.
	KindUnknown Kind = ""
)

var ErrMalformed = errors.New("malformed decision")

// Action is one decision returned by the decision service.
//
// Commands is always empty for Ask and Block. For Upload it holds file
// paths. Reason is empty for Inspect and Execute.
type Action struct {
	Kind     Kind
	Tag      string
	Commands []string
	Reason   string
}

// Block builds the fail-closed action used for transport and parse failures.
func Block(reason string) Action {
	return Action{Kind: KindBlock, Tag: string(KindBlock), Reason: reason}
}

// Parse decodes a decision reply. The reply must be a single JSON object
// with a string "action", an optional array of strings "commands", and an
// optional string-or-null "reason". Anything else is ErrMalformed.
// A missing reason, or commands on Ask and Block, are accepted on purpose:
// the reason falls back to a per-action default and stray commands are dropped.
func Parse(text string) (Action, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return Action{}, fmt.Errorf("%w: reply is not an object", ErrMalformed)
	}
	if dec.More() {
		return Action{}, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}

	rawAction, ok := fields["action"]
	if !ok {
		return Action{}, fmt.Errorf("%w: missing action field", ErrMalformed)
	}
	var tag string
	if err := json.Unmarshal(rawAction, &tag); err != nil {
		return Action{}, fmt.Errorf("%w: action is not a string", ErrMalformed)
	}

	commands, err := parseCommands(fields["commands"])
	if err != nil {
		return Action{}, err
	}
	reason, err := parseReason(fields["reason"])
	if err != nil {
		return Action{}, err
	}

	a := Action{
		Kind:     kindOf(tag),
		Tag:      tag,
		Commands: commands,
		Reason:   reason,
	}
	switch a.Kind {
	case KindAsk, KindBlock:
		a.Commands = nil
	case KindInspect, KindExecute:
		a.Reason = ""
	}
	return a, nil
}

func kindOf(tag string) Kind {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(tag))); k {
	case KindInspect, KindExecute, KindReview, KindAsk, KindUpload, KindBlock:
		return k
	default:
		return KindUnknown
	}
}

func parseCommands(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: commands is not an array", ErrMalformed)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, fmt.Errorf("%w: commands[%d] is not a string", ErrMalformed, i)
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func parseReason(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: reason is not a string", ErrMalformed)
	}
	return s, nil
}
