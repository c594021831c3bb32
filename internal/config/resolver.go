// Package config resolves service configuration from a YAML file,
// environment variables and CLI flags, recording where each value came
// from. Precedence: CLI > env > config file > default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/textask/internal/coda"
	"github.com/hurttlocker/textask/internal/interpret"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath string
	CLIListen  string
	CLIOracle  string
	CLIDBPath  string
}

// TwilioConfig gates the inbound webhook.
type TwilioConfig struct {
	AuthToken      string   `yaml:"auth_token"`
	AllowedSenders []string `yaml:"allowed_senders"`
	PublicURL      string   `yaml:"public_url"`
}

// RateLimitConfig bounds per-sender message volume.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// VocabConfig controls vocabulary caching.
type VocabConfig struct {
	TTL     time.Duration
	Refresh string // cron spec, empty = no background refresh
}

type Resolved struct {
	ConfigPath string `json:"config_path"`

	Listen    ResolvedValue `json:"listen"`
	DBPath    ResolvedValue `json:"db_path"`
	Oracle    ResolvedValue `json:"oracle"` // provider/model
	OracleKey ResolvedValue `json:"-"`
	Timezone  ResolvedValue `json:"timezone"`

	Coda      coda.Config              `json:"-"`
	Twilio    TwilioConfig             `json:"-"`
	RateLimit RateLimitConfig          `json:"rate_limit"`
	Vocab     VocabConfig              `json:"vocab"`
	Shortcuts []interpret.ShortcutRule `json:"shortcuts"`
}

type fileConfig struct {
	Listen   string `yaml:"listen"`
	DBPath   string `yaml:"db_path"`
	Timezone string `yaml:"timezone"`
	Oracle   struct {
		Model  string `yaml:"model"`
		APIKey string `yaml:"api_key"`
	} `yaml:"oracle"`
	Coda   coda.Config  `yaml:"coda"`
	Twilio TwilioConfig `yaml:"twilio"`
	Rate   struct {
		Window string `yaml:"window"`
		Max    int    `yaml:"max"`
	} `yaml:"rate_limit"`
	Vocab struct {
		TTL     string `yaml:"ttl"`
		Refresh string `yaml:"refresh"`
	} `yaml:"vocab"`
	Shortcuts []interpret.ShortcutRule `yaml:"shortcuts"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".textask", "config.yaml")
}

func Resolve(opts ResolveOptions) (Resolved, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := Resolved{
		ConfigPath: path,
		Listen:     ResolvedValue{Value: ":8080", Source: SourceDefault},
		DBPath:     ResolvedValue{Value: "~/.textask/textask.db", Source: SourceDefault},
		Oracle:     ResolvedValue{Value: "google/gemini-2.5-flash", Source: SourceDefault},
		Timezone:   ResolvedValue{Value: "UTC", Source: SourceDefault},
		RateLimit:  RateLimitConfig{Window: time.Hour, Max: 30},
		Vocab:      VocabConfig{TTL: 10 * time.Minute},
		Shortcuts:  interpret.DefaultShortcuts(),
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.Listen, cfg.Listen, SourceConfig, path)
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Oracle, cfg.Oracle.Model, SourceConfig, path)
		apply(&out.OracleKey, cfg.Oracle.APIKey, SourceConfig, path)
		apply(&out.Timezone, cfg.Timezone, SourceConfig, path)

		out.Coda = cfg.Coda
		out.Twilio = cfg.Twilio

		if cfg.Rate.Window != "" {
			d, err := time.ParseDuration(cfg.Rate.Window)
			if err != nil {
				return out, fmt.Errorf("parsing rate_limit.window %q: %w", cfg.Rate.Window, err)
			}
			out.RateLimit.Window = d
		}
		if cfg.Rate.Max > 0 {
			out.RateLimit.Max = cfg.Rate.Max
		}

		if cfg.Vocab.TTL != "" {
			d, err := time.ParseDuration(cfg.Vocab.TTL)
			if err != nil {
				return out, fmt.Errorf("parsing vocab.ttl %q: %w", cfg.Vocab.TTL, err)
			}
			out.Vocab.TTL = d
		}
		out.Vocab.Refresh = cfg.Vocab.Refresh

		if len(cfg.Shortcuts) > 0 {
			out.Shortcuts = cfg.Shortcuts
		}
	}

	applyEnv(&out.Listen, "TEXTASK_LISTEN")
	applyEnv(&out.DBPath, "TEXTASK_DB")
	applyEnv(&out.Oracle, "TEXTASK_ORACLE")
	applyEnv(&out.Timezone, "TEXTASK_TIMEZONE")

	if v := strings.TrimSpace(os.Getenv("CODA_API_KEY")); v != "" {
		out.Coda.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")); v != "" {
		out.Twilio.AuthToken = v
	}

	apply(&out.Listen, opts.CLIListen, SourceCLI, "--listen")
	apply(&out.Oracle, opts.CLIOracle, SourceCLI, "--oracle")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// Location parses the configured timezone.
func (r Resolved) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone.Value)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", r.Timezone.Value, err)
	}
	return loc, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
