package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyper-ai-inc/thinkshell/internal/config"
	"github.com/hyper-ai-inc/thinkshell/internal/pty"
)

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, provider, shellPath = "", "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigPathFollowsFlag(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")

	out, err := run(t, "--config", path, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("expected %s, got %q", path, out)
	}
	if os.Getenv(config.EnvConfig) != path {
		t.Errorf("expected --config to be exported, got %q", os.Getenv(config.EnvConfig))
	}
}

func TestConfigSetAndShow(t *testing.T) {
	isolateEnv(t)
	path, _ := writeConfig(t, "openai:\n  api_key: sk-secret\n")

	if _, err := run(t, "--config", path, "config", "set", "agent.max_rounds", "5"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.MaxRounds != 5 {
		t.Errorf("expected max_rounds 5, got %d", cfg.Agent.MaxRounds)
	}

	out, err := run(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-secret") {
		t.Errorf("api key leaked in %q", out)
	}
	if !strings.Contains(out, "max_rounds: 5") {
		t.Errorf("expected max_rounds in %q", out)
	}
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	isolateEnv(t)
	path, _ := writeConfig(t, "")
	before, _ := os.ReadFile(path)

	if _, err := run(t, "--config", path, "config", "set", "agent.max_rounds", "0"); err == nil {
		t.Fatal("expected an error for max_rounds 0")
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Errorf("config file changed:\n%s", after)
	}

	if _, err := run(t, "--config", path, "config", "set", "provider", "bogus"); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
	if _, err := run(t, "--config", path, "config", "set", "no.such.key", "1"); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestPersistProvider(t *testing.T) {
	isolateEnv(t)
	path, _ := writeConfig(t, "")

	if err := persistProvider(path, " NONE "); err != nil {
		t.Fatalf("persist: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != config.ProviderNone {
		t.Errorf("expected provider none, got %q", cfg.Provider)
	}
}

func TestHookCommandPassesDashes(t *testing.T) {
	isolateEnv(t)
	path, _ := writeConfig(t, "provider: none\n")
	t.Setenv(config.EnvConfig, path)

	out, err := run(t, pty.HookEntry, ModeFail, "--version")
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestSessionResetRequiresSession(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "session", "reset")
	if !errors.Is(err, errNoSession) {
		t.Errorf("expected errNoSession, got %v", err)
	}
}

func TestSessionReset(t *testing.T) {
	isolateEnv(t)
	path, _ := writeConfig(t, "")
	t.Setenv(pty.EnvSessionID, "shell-1")

	out, err := run(t, "--config", path, "session", "reset")
	if err != nil {
		t.Fatalf("session reset: %v", err)
	}
	if strings.TrimSpace(out) != "Conversation reset." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "thinkshell version "+version) {
		t.Errorf("unexpected output %q", out)
	}
}
