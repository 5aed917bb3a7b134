package decision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseActions(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Action
	}{
		{
			name: "inspect",
			in:   `{"action":"INSPECT","commands":["ls -la","pwd"],"reason":null}`,
			want: Action{Kind: KindInspect, Tag: "INSPECT", Commands: []string{"ls -la", "pwd"}},
		},
		{
			name: "execute drops reason",
			in:   `{"action":"EXECUTE","commands":["echo hi"],"reason":"ignored"}`,
			want: Action{Kind: KindExecute, Tag: "EXECUTE", Commands: []string{"echo hi"}},
		},
		{
			name: "review keeps reason",
			in:   `{"action":"REVIEW","commands":["rm -r build"],"reason":"deletes build output"}`,
			want: Action{Kind: KindReview, Tag: "REVIEW", Commands: []string{"rm -r build"}, Reason: "deletes build output"},
		},
		{
			name: "ask clears commands",
			in:   `{"action":"ASK","commands":["ignored"],"reason":"Which branch?"}`,
			want: Action{Kind: KindAsk, Tag: "ASK", Reason: "Which branch?"},
		},
		{
			name: "upload",
			in:   `{"action":"UPLOAD","commands":["main.go"],"reason":"need source"}`,
			want: Action{Kind: KindUpload, Tag: "UPLOAD", Commands: []string{"main.go"}, Reason: "need source"},
		},
		{
			name: "block without commands",
			in:   `{"action":"BLOCK","reason":"exfiltration"}`,
			want: Action{Kind: KindBlock, Tag: "BLOCK", Reason: "exfiltration"},
		},
		{
			name: "block with stray commands and no reason",
			in:   `{"action":"BLOCK","commands":["rm -rf /"]}`,
			want: Action{Kind: KindBlock, Tag: "BLOCK"},
		},
		{
			name: "ask without reason",
			in:   `{"action":"ASK","commands":[]}`,
			want: Action{Kind: KindAsk, Tag: "ASK"},
		},
		{
			name: "lowercase tag",
			in:   `{"action":" execute ","commands":["date"]}`,
			want: Action{Kind: KindExecute, Tag: " execute ", Commands: []string{"date"}},
		},
		{
			name: "blank commands dropped",
			in:   `{"action":"EXECUTE","commands":["", "  ", "uptime"]}`,
			want: Action{Kind: KindExecute, Tag: "EXECUTE", Commands: []string{"uptime"}},
		},
		{
			name: "unknown tag",
			in:   `{"action":"DANCE","commands":[]}`,
			want: Action{Kind: KindUnknown, Tag: "DANCE", Commands: []string{}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		``,
		`not json`,
		`[]`,
		`null`,
		`{"commands":["ls"]}`,
		`{"action":7}`,
		`{"action":"EXECUTE","commands":"ls"}`,
		`{"action":"EXECUTE","commands":[1]}`,
		`{"action":"ASK","reason":42}`,
		`{"action":"EXECUTE"} {"action":"BLOCK"}`,
	} {
		_, err := Parse(in)
		require.Error(t, err, in)
		require.True(t, errors.Is(err, ErrMalformed), in)
	}
}

func TestParseMissingActionNamesField(t *testing.T) {
	_, err := Parse(`{"commands":[],"reason":null}`)
	require.ErrorContains(t, err, "missing action")
}
