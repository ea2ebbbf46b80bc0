package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestVaultPath(t *testing.T) {
	t.Setenv("LINKCAL_VAULT", "")
	if got := VaultPath(); got != DefaultVaultPath {
		t.Errorf("expected default, got %q", got)
	}
	t.Setenv("LINKCAL_VAULT", "/tmp/notes")
	if got := VaultPath(); got != "/tmp/notes" {
		t.Errorf("expected env value, got %q", got)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.DebounceDelay() != 300*time.Millisecond || cfg.GraceDelay() != 500*time.Millisecond {
		t.Errorf("unexpected delays %v %v", cfg.DebounceDelay(), cfg.GraceDelay())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "dailyFolder: Journal\nfirstDayOfWeek: sunday\ndebounceMs: 100\n"
	if err := os.WriteFile(filepath.Join(dir, FileName+".yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LINKCAL_GRACEMS", "50")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DailyFolder != "Journal" || cfg.Weekday() != time.Sunday {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.DebounceMs != 100 || cfg.GraceMs != 50 {
		t.Errorf("expected debounce 100 and grace 50 from env, got %+v", cfg)
	}
	if cfg.DefaultPeriod != "past-30-days" {
		t.Errorf("expected default period, got %q", cfg.DefaultPeriod)
	}
}

func TestLoad_InvalidWeekday(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName+".yaml"), []byte("firstDayOfWeek: someday\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "firstDayOfWeek" {
		t.Errorf("expected ConfigError on firstDayOfWeek, got %v", err)
	}
}
