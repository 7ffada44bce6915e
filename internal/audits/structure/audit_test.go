package structure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/detentsh/testgate/internal/audit"
)

func writeFile(t *testing.T, moduleDir, rel, content string) {
	t.Helper()
	p := filepath.Join(moduleDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
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

func TestSharedTestBanned(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/sharedTest/kotlin/Shared.kt", "package x\n")

	result := collect(t, New(Config{Module: dir}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
}

func TestMisplacedJavaTestFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/test/java/Foo.java", "class Foo {}\n")
	writeFile(t, dir, "build.gradle", "testImplementation project(':harness')\n")

	result := collect(t, New(Config{Module: dir, HarnessCoordinate: ":harness"}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
}

func TestMissingHarnessDependencyWhenTestsExist(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/test/kotlin/Foo.kt", "package x\n")
	writeFile(t, dir, "build.gradle", "dependencies {}\n")

	result := collect(t, New(Config{Module: dir, HarnessCoordinate: ":harness"}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
	found := false
	for _, f := range result.Findings {
		if f.Type == "MissingHarnessDependency" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected MissingHarnessDependency, got %+v", result.Findings)
	}
}

func TestHarnessDependencyDetectedAfterCommentStrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/test/kotlin/Foo.kt", "package x\n")
	writeFile(t, dir, "build.gradle.kts", "// comment\ndependencies {\n    /* block */ testImplementation(project(\":harness\"))\n}\n")

	result := collect(t, New(Config{Module: dir, HarnessCoordinate: ":harness"}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS, findings=%+v", result.Status, result.Findings)
	}
}

func TestInstrumentedToleranceGating(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/androidTest/kotlin/Foo.kt", "package x\n\nimport com.example.instrumented.Banned\n")

	resultStrict := collect(t, New(Config{
		Module:                       dir,
		InstrumentedRootPackage:      "com.example.instrumented",
		InstrumentedTolerancePercent: 0,
	}))
	if resultStrict.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL at 0%% tolerance", resultStrict.Status)
	}

	resultLenient := collect(t, New(Config{
		Module:                       dir,
		InstrumentedRootPackage:      "com.example.instrumented",
		InstrumentedTolerancePercent: 100,
	}))
	if resultLenient.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS at 100%% tolerance", resultLenient.Status)
	}
}

func TestInstrumentedAllowListExempts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/androidTest/kotlin/Foo.kt", "package x\n\nimport com.example.instrumented.Allowed\n")

	result := collect(t, New(Config{
		Module:                       dir,
		InstrumentedRootPackage:      "com.example.instrumented",
		InstrumentedAllowList:        []string{"com.example.instrumented.Allowed"},
		InstrumentedTolerancePercent: 0,
	}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS, findings=%+v", result.Status, result.Findings)
	}
}

func TestCleanModulePasses(t *testing.T) {
	dir := t.TempDir()
	result := collect(t, New(Config{Module: dir}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS", result.Status)
	}
}
