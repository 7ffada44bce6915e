package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "testgate.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigMatchesTable(t *testing.T) {
	cfg := Default()

	if cfg.Detekt.TolerancePercent != 10 {
		t.Errorf("Detekt.TolerancePercent = %d, want 10", cfg.Detekt.TolerancePercent)
	}
	if cfg.Lint.TolerancePercent != 10 {
		t.Errorf("Lint.TolerancePercent = %d, want 10", cfg.Lint.TolerancePercent)
	}
	if cfg.SqlFts.TolerancePercent != 0 {
		t.Errorf("SqlFts.TolerancePercent = %d, want 0", cfg.SqlFts.TolerancePercent)
	}
	if cfg.Structure.InstrumentedTolerancePercent != 0 {
		t.Errorf("Structure.InstrumentedTolerancePercent = %d, want 0", cfg.Structure.InstrumentedTolerancePercent)
	}
	if cfg.Fixtures.TolerancePercent != 10 || cfg.Fixtures.MinBytes != 256 || cfg.Fixtures.MaxBytes != 8192 {
		t.Errorf("Fixtures = %+v, want 10/256/8192", cfg.Fixtures)
	}
	if cfg.Tests.TolerancePercent != 10 {
		t.Errorf("Tests.TolerancePercent = %d, want 10", cfg.Tests.TolerancePercent)
	}
	if cfg.Coverage.Branches.MinPercent != 70 {
		t.Errorf("Coverage.Branches.MinPercent = %d, want 70", cfg.Coverage.Branches.MinPercent)
	}
	if cfg.UploadEnabled == nil || !*cfg.UploadEnabled {
		t.Errorf("UploadEnabled = %v, want true", cfg.UploadEnabled)
	}
}

func TestLoadAppliesPartialOverrides(t *testing.T) {
	path := writeConfig(t, `
detekt:
  tolerancePercent: 5
  hardFailRuleIds:
    - ForbiddenImport
uploadEnabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Detekt.TolerancePercent != 5 {
		t.Errorf("Detekt.TolerancePercent = %d, want 5", cfg.Detekt.TolerancePercent)
	}
	if len(cfg.Detekt.HardFailRuleIDs) != 1 || cfg.Detekt.HardFailRuleIDs[0] != "ForbiddenImport" {
		t.Errorf("HardFailRuleIDs = %v", cfg.Detekt.HardFailRuleIDs)
	}
	if cfg.Lint.TolerancePercent != 10 {
		t.Errorf("Lint.TolerancePercent should still default to 10, got %d", cfg.Lint.TolerancePercent)
	}
	if cfg.UploadEnabled == nil || *cfg.UploadEnabled {
		t.Errorf("UploadEnabled = %v, want false", cfg.UploadEnabled)
	}
}

func TestLoadExplicitZeroIsHonored(t *testing.T) {
	path := writeConfig(t, `
fixtures:
  tolerancePercent: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fixtures.TolerancePercent != 0 {
		t.Errorf("Fixtures.TolerancePercent = %d, want explicit 0 honored", cfg.Fixtures.TolerancePercent)
	}
	if cfg.Fixtures.MinBytes != 256 {
		t.Errorf("Fixtures.MinBytes should still default, got %d", cfg.Fixtures.MinBytes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/testgate.yml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testgate.yml")
	big := make([]byte, maxConfigSizeBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for oversized config file")
	}
}

func TestLoadRejectsNullBytes(t *testing.T) {
	path := writeConfig(t, "detekt:\n  tolerancePercent: 5\x00\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for config containing null bytes")
	}
}
