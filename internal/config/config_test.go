package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "reel")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if !strings.HasPrefix(cfg.Paths.TempDir, wantData) {
		t.Fatalf("expected temp dir under data dir, got %q", cfg.Paths.TempDir)
	}
	if cfg.Planner.BaseURL != config.Default().Planner.BaseURL {
		t.Fatalf("unexpected planner base url: %q", cfg.Planner.BaseURL)
	}
	if cfg.Planner.Instructions == "" {
		t.Fatal("expected default planner instructions")
	}
	if cfg.Generator.DurationSeconds != 30 {
		t.Fatalf("unexpected default duration: %d", cfg.Generator.DurationSeconds)
	}
	if cfg.Generator.Resolution != "1080p" {
		t.Fatalf("unexpected default resolution: %q", cfg.Generator.Resolution)
	}
	if cfg.Publisher.Privacy != "private" {
		t.Fatalf("unexpected default privacy: %q", cfg.Publisher.Privacy)
	}
	if cfg.Schedule.CheckIntervalSeconds != 60 {
		t.Fatalf("unexpected check interval: %d", cfg.Schedule.CheckIntervalSeconds)
	}
	if got := cfg.LedgerPath(); got != filepath.Join(wantData, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", got)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.TempDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadParsesScheduleAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.toml")
	content := `
[paths]
data_dir = "` + dir + `/state"

[generator]
duration_seconds = 12
resolution = "720p"

[schedule]
check_interval_seconds = 5

[schedule.entries]
Monday = "09:00"
friday = "18:30"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Generator.DurationSeconds != 12 {
		t.Fatalf("expected duration override, got %d", cfg.Generator.DurationSeconds)
	}
	if cfg.Generator.Resolution != "720p" {
		t.Fatalf("expected resolution override, got %q", cfg.Generator.Resolution)
	}
	if cfg.Schedule.CheckIntervalSeconds != 5 {
		t.Fatalf("expected check interval override, got %d", cfg.Schedule.CheckIntervalSeconds)
	}
	if got := cfg.Schedule.Entries["monday"]; got != "09:00" {
		t.Fatalf("expected weekday keys lowercased, got entries %v", cfg.Schedule.Entries)
	}
	if got := cfg.Schedule.Entries["friday"]; got != "18:30" {
		t.Fatalf("missing friday entry: %v", cfg.Schedule.Entries)
	}
}

func TestLoadRejectsBadScheduleTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.toml")
	content := `
[schedule.entries]
monday = "9am"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unparseable schedule time")
	}
}

func TestLoadRejectsUnknownWeekday(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.toml")
	content := `
[schedule.entries]
moonday = "09:00"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}

func TestLoadRejectsBadPrivacy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.toml")
	content := `
[publisher]
privacy = "secret"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid privacy level")
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Schedule.Entries["monday"] != "09:00" {
		t.Fatalf("expected sample monday entry, got %v", cfg.Schedule.Entries)
	}
}
