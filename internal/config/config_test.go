package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadReturnsDefaultsWithNoFileNoFlagsNoEnv(t *testing.T) {
	cfg, _, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Defaults()
	if cfg != want {
		t.Fatalf("expected defaults %+v, got %+v", want, cfg)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapo.yaml")
	contents := "log-level: debug\nlogtab-ring-capacity: 500\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, _, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log-level debug from file, got %q", cfg.LogLevel)
	}
	if cfg.LogTabRingCapacity != 500 {
		t.Fatalf("expected logtab-ring-capacity 500 from file, got %d", cfg.LogTabRingCapacity)
	}
	// Untouched keys keep their defaults.
	if cfg.HTTPMaxBodyBytes != Defaults().HTTPMaxBodyBytes {
		t.Fatalf("expected http-max-body-bytes to keep its default, got %d", cfg.HTTPMaxBodyBytes)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapo.yaml")
	if err := os.WriteFile(path, []byte("log-level: debug\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	t.Setenv("SNAPO_LOG_LEVEL", "info")
	cfg, _, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected env override to win over file, got %q", cfg.LogLevel)
	}
}

func TestLoadFlagsOverrideEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapo.yaml")
	if err := os.WriteFile(path, []byte("log-level: debug\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	t.Setenv("SNAPO_LOG_LEVEL", "info")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--log-level=warn"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, _, err := Load(path, fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected explicit flag to win over env and file, got %q", cfg.LogLevel)
	}
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"), nil)
	if err == nil {
		t.Fatal("expected an error loading a missing config file")
	}
}

func TestNewRedactionEngineWithoutPatternsFileUsesBuiltinsOnly(t *testing.T) {
	cfg := Defaults()
	engine, err := cfg.NewRedactionEngine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !engine.DropsHeader("Authorization") {
		t.Fatal("expected built-in header drop set to still apply")
	}
}

func TestNewRedactionEngineLoadsExtraPatternsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.json")
	contents := `{"patterns":[{"name":"internal-id","pattern":"INTID-[0-9]{6}"}]}`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg := Defaults()
	cfg.RedactionPatternsFile = path
	engine, err := cfg.NewRedactionEngine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := engine.Redact("order INTID-123456 shipped")
	if got == "order INTID-123456 shipped" {
		t.Fatalf("expected custom pattern to redact the internal id, got unchanged text: %q", got)
	}
}

func TestNewRedactionEngineReturnsErrorForBadPatternsFile(t *testing.T) {
	cfg := Defaults()
	cfg.RedactionPatternsFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := cfg.NewRedactionEngine(); err == nil {
		t.Fatal("expected an error for a missing redaction patterns file")
	}
}

func TestLoadRedactionPatternsRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := LoadRedactionPatterns(path); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
