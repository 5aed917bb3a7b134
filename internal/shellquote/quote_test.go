package shellquote

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	require.Equal(t, "''", Quote(""))
	require.Equal(t, "'abc'", Quote("abc"))
	require.Equal(t, `'it'"'"'s'`, Quote("it's"))
	require.Equal(t, "'a' 'b c'", Join("a", "b c"))
}

func TestQuoteRoundTripsThroughShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	for _, s := range []string{"plain", "it's", `$HOME "x" \n`, "a;b|c&d", "`id`", "line1\nline2"} {
		out, err := exec.Command("sh", "-c", "printf '%s' "+Quote(s)).Output()
		require.NoError(t, err)
		require.Equal(t, s, string(out))
	}
}
