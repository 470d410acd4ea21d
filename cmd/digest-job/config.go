package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	ExportPath   string
	ArrayField   string
	AliasPath    string
	GlossaryPath string
	StatePath    string
	OutDir       string

	Channels    []string
	WindowHours int
	RecentHours int

	Model         string
	APIKey        string
	WebhookURL    string
	TelegramToken string

	ChunkLimit int
	DryRun     bool

	Schedule string
	Timezone string
}

func (c Config) Validate() error {
	if c.ExportPath == "" && c.TelegramToken == "" {
		return errors.New("missing -export (or TELEGRAM_BOT_TOKEN for live polling)")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.WindowHours <= 0 {
		return errors.New("window-hours must be > 0")
	}
	if c.RecentHours <= 0 || c.RecentHours > c.WindowHours {
		return errors.New("recent-hours must be in (0, window-hours]")
	}
	if c.ChunkLimit < 0 {
		return errors.New("chunk-limit must be >= 0")
	}
	if !c.DryRun && c.WebhookURL == "" {
		return errors.New("missing webhook url (pass -webhook, set DISCORD_WEBHOOK_URL, or use -dry-run)")
	}
	if c.Schedule != "" {
		if _, _, err := parseClock(c.Schedule); err != nil {
			return err
		}
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		AliasPath:    filepath.FromSlash("config/aliases.yml"),
		GlossaryPath: filepath.FromSlash("config/glossary.yml"),
		StatePath:    filepath.FromSlash("digest_runs.db"),
		WindowHours:  24,
		RecentHours:  6,
		Model:        "gpt-5-mini",
		ChunkLimit:   0,
		Timezone:     "Asia/Jakarta",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var channels string
	fs.StringVar(&cfg.ExportPath, "export", "", "Path to chat export JSON (omit to poll Telegram live)")
	fs.StringVar(&cfg.ArrayField, "export-field", "", "Name of the message array field in an object export (default: first array)")
	fs.StringVar(&cfg.AliasPath, "aliases", cfg.AliasPath, "Path to alias table YAML (missing file degrades to empty)")
	fs.StringVar(&cfg.GlossaryPath, "glossary", cfg.GlossaryPath, "Path to glossary YAML for the compose prompt (missing file degrades to empty)")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "Path to the run-state SQLite database (empty disables)")
	fs.StringVar(&cfg.OutDir, "out", "", "Optional directory for run artifacts (candidates, digest, chunks)")
	fs.StringVar(&channels, "channels", "", "Comma-separated channel handles to include (empty = all)")
	fs.IntVar(&cfg.WindowHours, "window-hours", cfg.WindowHours, "Context window size in hours")
	fs.IntVar(&cfg.RecentHours, "recent-hours", cfg.RecentHours, "Digest window size in hours (the period the digest covers)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use (e.g. gpt-5-mini)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.StringVar(&cfg.WebhookURL, "webhook", "", "Discord webhook URL (overrides DISCORD_WEBHOOK_URL env var)")
	fs.IntVar(&cfg.ChunkLimit, "chunk-limit", cfg.ChunkLimit, "Max characters per delivered message (0 = default)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Build the digest but print instead of posting")
	fs.StringVar(&cfg.Schedule, "schedule", "", "Run daily at HH:MM in -tz instead of once (e.g. 07:00)")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "IANA timezone for -schedule")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ExportPath != "" {
		cfg.ExportPath = filepath.Clean(cfg.ExportPath)
	}
	cfg.AliasPath = filepath.Clean(cfg.AliasPath)
	cfg.GlossaryPath = filepath.Clean(cfg.GlossaryPath)
	if cfg.StatePath != "" {
		cfg.StatePath = filepath.Clean(cfg.StatePath)
	}
	if cfg.OutDir != "" {
		cfg.OutDir = filepath.Clean(cfg.OutDir)
	}

	for _, c := range strings.Split(channels, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cfg.Channels = append(cfg.Channels, c)
		}
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	}
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	return cfg, nil
}
