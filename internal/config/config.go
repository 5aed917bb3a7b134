// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package config loads thinkshell settings.
//
// Settings are resolved from (highest to lowest priority):
//  1. Environment variables (THINKSHELL_*, plus OPENAI_API_KEY and OPENAI_MODEL)
//  2. The YAML config file
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"

	EnvPrefix = "THINKSHELL"
	EnvConfig = "THINKSHELL_CONFIG"
)

// Config is the resolved configuration.
type Config struct {
	Provider string         `mapstructure:"provider"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Decision DecisionConfig `mapstructure:"decision"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Shell    ShellConfig    `mapstructure:"shell"`
	State    StateConfig    `mapstructure:"state"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
}

// DecisionConfig bounds calls to the decision service.
type DecisionConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// AgentConfig bounds one command-resolution cycle.
type AgentConfig struct {
	MaxRounds      int           `mapstructure:"max_rounds"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	MaxProbeOutput int           `mapstructure:"max_probe_output"`
	ExchangeLimit  int           `mapstructure:"exchange_limit"`
}

type UploadConfig struct {
	MaxFiles int    `mapstructure:"max_files"`
	MaxBytes int64  `mapstructure:"max_bytes"`
	Purpose  string `mapstructure:"purpose"`
}

// ShellConfig selects the interactive shell. An empty Path auto-detects bash
// and an empty Prompt selects the built-in one.
type ShellConfig struct {
	Path   string `mapstructure:"path"`
	Prompt string `mapstructure:"prompt"`
}

type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// Path resolves the config file location: the explicit path if given, then
// $THINKSHELL_CONFIG, then $XDG_CONFIG_HOME/thinkshell/config.yaml, then
// ~/.config/thinkshell/config.yaml on every platform.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if !filepath.IsAbs(dir) {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "thinkshell", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "thinkshell", "config.yaml")
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "thinkshell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "thinkshell")
	}
	return filepath.Join(home, ".local", "state", "thinkshell")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)

	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-5-nano")
	v.SetDefault("openai.api_key", "")

	v.SetDefault("decision.timeout", 60*time.Second)

	v.SetDefault("agent.max_rounds", 12)
	v.SetDefault("agent.probe_timeout", 10*time.Second)
	v.SetDefault("agent.max_probe_output", 4000)
	v.SetDefault("agent.exchange_limit", 20)

	v.SetDefault("upload.max_files", 10)
	v.SetDefault("upload.max_bytes", 250000)
	v.SetDefault("upload.purpose", "assistants")

	v.SetDefault("shell.path", "")
	v.SetDefault("shell.prompt", "")

	v.SetDefault("state.dir", defaultStateDir())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.model", EnvPrefix+"_OPENAI_MODEL", "OPENAI_MODEL")
	return v
}

func read(path string) (*viper.Viper, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the config file at path (see Path) and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v, err := read(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOpenAI, ProviderNone)
	}

	checks := []struct {
		name string
		ok   bool
	}{
		{"decision.timeout", c.Decision.Timeout > 0},
		{"agent.max_rounds", c.Agent.MaxRounds > 0},
		{"agent.probe_timeout", c.Agent.ProbeTimeout > 0},
		{"agent.max_probe_output", c.Agent.MaxProbeOutput > 0},
		{"agent.exchange_limit", c.Agent.ExchangeLimit > 0},
		{"upload.max_files", c.Upload.MaxFiles > 0},
		{"upload.max_bytes", c.Upload.MaxBytes > 0},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%s must be positive", ch.name)
		}
	}
	if c.State.Dir == "" {
		return errors.New("state.dir must be set")
	}
	return nil
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := newViper().AllKeys()
	sort.Strings(keys)
	return keys
}

// Show renders the effective configuration as YAML with the API key
// redacted.
func Show(path string) (string, error) {
	v, err := read(path)
	if err != nil {
		return "", err
	}
	if v.GetString("openai.api_key") != "" {
		v.Set("openai.api_key", "********")
	}
	b, err := yaml.Marshal(stringifyDurations(v.AllSettings()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func stringifyDurations(m map[string]any) map[string]any {
	for k, val := range m {
		switch t := val.(type) {
		case time.Duration:
			m[k] = t.String()
		case map[string]any:
			m[k] = stringifyDurations(t)
		}
	}
	return m
}
