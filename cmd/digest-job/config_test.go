package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/theimaginaryfoundation/digest-o-bot/digest/source"
)

func TestParseFlags_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("digest-job", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.WindowHours != 24 {
		t.Fatalf("WindowHours=%d, want 24", cfg.WindowHours)
	}
	if cfg.RecentHours != 6 {
		t.Fatalf("RecentHours=%d, want 6", cfg.RecentHours)
	}
	if cfg.Model == "" {
		t.Fatalf("expected default model")
	}
	if cfg.Timezone != "Asia/Jakarta" {
		t.Fatalf("Timezone=%q, want Asia/Jakarta", cfg.Timezone)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	fs := flag.NewFlagSet("digest-job", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-export", "a/b/export.json",
		"-channels", "alpha, @beta ,",
		"-window-hours", "12",
		"-recent-hours", "3",
		"-chunk-limit", "1500",
		"-dry-run",
		"-schedule", "07:00",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.ExportPath != "a/b/export.json" {
		t.Fatalf("ExportPath=%q", cfg.ExportPath)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[0] != "alpha" || cfg.Channels[1] != "@beta" {
		t.Fatalf("Channels=%v, want [alpha @beta]", cfg.Channels)
	}
	if cfg.WindowHours != 12 || cfg.RecentHours != 3 {
		t.Fatalf("window=%d recent=%d", cfg.WindowHours, cfg.RecentHours)
	}
	if cfg.ChunkLimit != 1500 {
		t.Fatalf("ChunkLimit=%d", cfg.ChunkLimit)
	}
	if !cfg.DryRun {
		t.Fatalf("DryRun=false, want true")
	}
	if cfg.Schedule != "07:00" {
		t.Fatalf("Schedule=%q", cfg.Schedule)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	base.ExportPath = "export.json"
	base.DryRun = true

	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noSource := base
	noSource.ExportPath = ""
	if err := noSource.Validate(); err == nil {
		t.Fatalf("expected error without a source")
	}

	badRecent := base
	badRecent.RecentHours = 48
	if err := badRecent.Validate(); err == nil {
		t.Fatalf("expected error for recent > window")
	}

	noWebhook := base
	noWebhook.DryRun = false
	noWebhook.WebhookURL = ""
	if err := noWebhook.Validate(); err == nil {
		t.Fatalf("expected error without webhook when not dry-run")
	}

	badSchedule := base
	badSchedule.Schedule = "25:00"
	if err := badSchedule.Validate(); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestBuildSource_MissingExportFile(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.ExportPath = filepath.Join(t.TempDir(), "no-such-export.json")
	if _, err := buildSource(cfg); err == nil {
		t.Fatalf("expected error for missing export file")
	}
}

func TestBuildSource_ExistingExportFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	cfg := defaultConfig()
	cfg.ExportPath = path
	src, err := buildSource(cfg)
	if err != nil {
		t.Fatalf("buildSource: %v", err)
	}
	if _, ok := src.(*source.ExportSource); !ok {
		t.Fatalf("got %T, want *source.ExportSource", src)
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	h, m, err := parseClock("07:30")
	if err != nil || h != 7 || m != 30 {
		t.Fatalf("parseClock=%d:%d err=%v", h, m, err)
	}
	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd"} {
		if _, _, err := parseClock(bad); err == nil {
			t.Fatalf("parseClock(%q) succeeded, want error", bad)
		}
	}
}

func TestUsableCompletion(t *testing.T) {
	t.Parallel()

	if usableCompletion("short") {
		t.Fatalf("short output should be unusable")
	}
	long := "**6hダイジェスト**\n\n## Now\n"
	for len([]rune(long)) < 120 {
		long += "内容が続きます。"
	}
	if !usableCompletion(long) {
		t.Fatalf("structured long output should be usable")
	}
	noSections := ""
	for len([]rune(noSections)) < 120 {
		noSections += "プレーンテキスト。"
	}
	if usableCompletion(noSections) {
		t.Fatalf("output without sections should be unusable")
	}
}
