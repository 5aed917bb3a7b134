package pty

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func startPTY(t *testing.T, script string) (*PTY, *syncBuffer) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p, err := Start(exec.Command("sh", "-c", script), &pty.Winsize{Rows: DefaultRows, Cols: DefaultCols})
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	var got syncBuffer
	go got.drain(p.File())
	return p, &got
}

func exitCode(t *testing.T, p *PTY) int {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	var ee *exec.ExitError
	require.True(t, errors.As(p.ExitErr(), &ee), "exit error %v", p.ExitErr())
	return ee.ExitCode()
}

func TestExitErrCarriesStatus(t *testing.T) {
	p, _ := startPTY(t, "exit 3")
	require.Equal(t, 3, exitCode(t, p))
}

func TestSignalReachesForegroundGroup(t *testing.T) {
	p, got := startPTY(t, `trap 'exit 7' INT; echo ready; while :; do sleep 0.05; done`)
	require.Eventually(t, func() bool { return got.contains("ready") }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, p.Signal(syscall.SIGINT))
	require.Equal(t, 7, exitCode(t, p))
}

func TestSignalAfterClose(t *testing.T) {
	p, _ := startPTY(t, "sleep 5")
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Signal(syscall.SIGINT), os.ErrClosed)
}
