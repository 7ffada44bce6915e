package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/detentsh/testgate/internal/audit"
)

func writeFixture(t *testing.T, moduleDir, rel string, size int) {
	t.Helper()
	p := filepath.Join(moduleDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	content := make([]byte, size)
	for i := range content {
		content[i] = 'x'
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func collect(t *testing.T, a audit.Audit) audit.AuditResult {
	t.Helper()
	var got audit.AuditResult
	seen := false
	if err := a(audit.SinkFunc(func(r audit.AuditResult) {
		got = r
		seen = true
	})); err != nil {
		t.Fatalf("audit returned processing error: %v", err)
	}
	if !seen {
		t.Fatal("audit never invoked the callback")
	}
	return got
}

func TestMissingFixtureFails(t *testing.T) {
	dir := t.TempDir()
	result := collect(t, New(Config{Module: dir, TolerancePercent: 10, MinBytes: 256, MaxBytes: 8192}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
	if len(result.Findings) != 1 || result.Findings[0].Type != "MissingFixture" {
		t.Errorf("Findings = %+v", result.Findings)
	}
}

func TestBoundaryValuesAllowed(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "src/test/resources/a.json", 256)
	writeFixture(t, dir, "src/test/resources/b.json", 8192)

	result := collect(t, New(Config{Module: dir, TolerancePercent: 10, MinBytes: 256, MaxBytes: 8192}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS, findings=%+v", result.Status, result.Findings)
	}
	if len(result.Findings) != 0 {
		t.Errorf("boundary sizes should not be flagged, got %+v", result.Findings)
	}
}

func TestOutOfWindowFixturesFlagged(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "src/test/resources/small.json", 10)
	writeFixture(t, dir, "src/test/resources/big.json", 20000)

	result := collect(t, New(Config{Module: dir, TolerancePercent: 0, MinBytes: 256, MaxBytes: 8192}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
	types := map[string]bool{}
	for _, f := range result.Findings {
		types[f.Type] = true
	}
	if !types["FixtureTooSmall"] || !types["FixtureOversize"] {
		t.Errorf("Findings = %+v", result.Findings)
	}
}

func TestWithinToleranceStillPasses(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 9; i++ {
		writeFixture(t, dir, filepath.Join("src/test/resources", "ok"+string(rune('a'+i))+".json"), 1000)
	}
	writeFixture(t, dir, "src/test/resources/small.json", 10)

	result := collect(t, New(Config{Module: dir, TolerancePercent: 10, MinBytes: 256, MaxBytes: 8192}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS (1/10 = 10%% is within tolerance), findings=%+v", result.Status, result.Findings)
	}
}
