package pty

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireBash(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	return path
}

// fakeHook writes an executable that stands in for the thinkshell binary.
func fakeHook(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-thinkshell")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func runWithRC(t *testing.T, exe, script string) (stdout, stderr string, code int) {
	t.Helper()
	bash := requireBash(t)

	sh := Shell{Exe: exe, SessionID: "test-session", Dir: t.TempDir()}
	require.NoError(t, sh.WriteRC())

	cmd := exec.Command(bash, "--norc", "--noprofile", "-c", `source "$1"; `+script, "bash", sh.RCPath())
	cmd.Env = sh.environ([]string{"PATH=" + os.Getenv("PATH"), "HOME=" + t.TempDir()})
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else {
		require.NoError(t, err)
	}
	return out.String(), errOut.String(), code
}

func TestHookEvaluatesResponse(t *testing.T) {
	exe := fakeHook(t, `[ "$1" = hook ] && [ "$2" = FAIL ] && printf 'echo fixed:%s\n' "$3" | sed "s/:\(.*\)/:'\1'/"`)

	stdout, _, code := runWithRC(t, exe, "no_such_command_xyz --flag value")
	require.Equal(t, 0, code)
	require.Equal(t, "fixed:no_such_command_xyz --flag value\n", stdout)
}

func TestHookFallsBackTo127(t *testing.T) {
	exe := fakeHook(t, `exit 0`)

	stdout, stderr, code := runWithRC(t, exe, "no_such_command_xyz")
	require.Equal(t, 127, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "bash: no_such_command_xyz: command not found")
}

func TestDeferredCommandsRunInLiveShell(t *testing.T) {
	exe := fakeHook(t, `printf '%s\n' "printf 'cd /\n' >> \"\$THINKSHELL_DEFER\""`)

	stdout, _, code := runWithRC(t, exe, `cd "$HOME"; no_such_command_xyz; _thinkshell_apply; pwd; [ ! -e "$THINKSHELL_DEFER" ] && echo drained`)
	require.Equal(t, 0, code)
	require.Equal(t, "/\ndrained\n", stdout)
}

func TestShellEnvironment(t *testing.T) {
	sh := Shell{Exe: "/usr/local/bin/thinkshell", SessionID: "abc", Dir: "/tmp/ts"}
	env := sh.environ([]string{"PATH=/bin", "TERM=", "THINKSHELL_SESSION_ID=stale"})

	require.Contains(t, env, "PATH=/bin")
	require.Contains(t, env, "TERM=xterm-256color")
	require.Contains(t, env, "THINKSHELL_EXE=/usr/local/bin/thinkshell")
	require.Contains(t, env, "THINKSHELL_ENTRY=hook")
	require.Contains(t, env, "THINKSHELL_SESSION_ID=abc")
	require.Contains(t, env, "THINKSHELL_DEFER=/tmp/ts/defer.sh")
	require.NotContains(t, env, "THINKSHELL_SESSION_ID=stale")

	env = sh.environ([]string{"TERM=screen"})
	require.Contains(t, env, "TERM=screen")
	require.NotContains(t, env, "TERM=xterm-256color")
}

func TestBootstrapPrompt(t *testing.T) {
	require.Contains(t, Bootstrap(""), "PS1='"+DefaultPrompt+"'")
	require.True(t, strings.HasSuffix(Bootstrap("it's $ "), "PS1='it'\"'\"'s $ '\n"))
	require.Contains(t, Bootstrap(""), "source ~/.bashrc")
	require.Contains(t, Bootstrap(""), `"$THINKSHELL_EXE" "$THINKSHELL_ENTRY" FAIL`)
}

func TestCommandUsesRCFile(t *testing.T) {
	sh := Shell{Path: "/bin/bash", Dir: "/tmp/ts"}
	cmd := sh.Command()
	require.Equal(t, []string{"/bin/bash", "--noprofile", "--rcfile", "/tmp/ts/bashrc", "-i"}, cmd.Args)
}
