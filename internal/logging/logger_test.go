package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	log, err := New(dir, "debug", "json")
	require.NoError(t, err)

	log.Info("hello from test")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Contains(t, string(b), "hello from test")
	require.Contains(t, string(b), `"pid"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(t.TempDir(), "loud", "console")
	require.ErrorContains(t, err, "invalid log level")
}
