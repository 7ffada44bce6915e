package tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/detentsh/testgate/internal/audit"
)

func writeResults(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
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

func TestMissingResultsDirPasses(t *testing.T) {
	result := collect(t, New(Config{Module: "m", ResultsDir: "/nonexistent", TolerancePercent: 10}))
	if result.Status != audit.Pass || len(result.Findings) != 0 {
		t.Errorf("got status=%v findings=%v, want PASS/none", result.Status, result.Findings)
	}
}

func TestPresentDirWithoutXMLIsProcessingError(t *testing.T) {
	dir := t.TempDir()
	a := New(Config{Module: "m", ResultsDir: dir, TolerancePercent: 10, TaskNames: []string{"testDebugUnitTest"}})
	err := a(audit.SinkFunc(func(audit.AuditResult) {
		t.Error("callback should not run on processing error")
	}))
	if err == nil {
		t.Fatal("expected processing error")
	}
}

func TestFailuresBelowToleranceDoesNotFail(t *testing.T) {
	dir := t.TempDir()
	writeResults(t, dir, "TEST-Foo.xml", `<testsuite>
  <testcase classname="FooTest" name="a"/>
  <testcase classname="FooTest" name="b"/>
  <testcase classname="FooTest" name="c"/>
  <testcase classname="FooTest" name="d"/>
  <testcase classname="FooTest" name="e"/>
  <testcase classname="FooTest" name="f"/>
  <testcase classname="FooTest" name="g"/>
  <testcase classname="FooTest" name="h"/>
  <testcase classname="FooTest" name="i"/>
  <testcase classname="FooTest" name="j">
    <failure message="assertion failed">stack line 1
stack line 2</failure>
  </testcase>
</testsuite>`)

	result := collect(t, New(Config{Module: "m", ResultsDir: dir, TolerancePercent: 10}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS (1/10 = 10%% within tolerance)", result.Status)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("Findings = %+v, want 1", result.Findings)
	}
	if result.Findings[0].Message != "FooTest#j: assertion failed" {
		t.Errorf("Message = %q", result.Findings[0].Message)
	}
}

func TestSkippedExcludedFromDenominator(t *testing.T) {
	dir := t.TempDir()
	writeResults(t, dir, "TEST-Foo.xml", `<testsuite>
  <testcase classname="FooTest" name="a"><skipped/></testcase>
  <testcase classname="FooTest" name="b">
    <failure message="boom">trace</failure>
  </testcase>
</testsuite>`)

	result := collect(t, New(Config{Module: "m", ResultsDir: dir, TolerancePercent: 0}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL (1 failed / 1 executed)", result.Status)
	}
}

func TestWhitelistedCaseExcluded(t *testing.T) {
	dir := t.TempDir()
	writeResults(t, dir, "TEST-Foo.xml", `<testsuite>
  <testcase classname="FooTest" name="flaky">
    <failure message="boom">trace</failure>
  </testcase>
</testsuite>`)

	result := collect(t, New(Config{
		Module:            "m",
		ResultsDir:        dir,
		TolerancePercent:  0,
		WhitelistPatterns: []string{"FooTest#flaky"},
	}))
	if result.Status != audit.Pass || len(result.Findings) != 0 {
		t.Errorf("got status=%v findings=%v, want PASS/none", result.Status, result.Findings)
	}
}

func TestErrorNodeCountsAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeResults(t, dir, "TEST-Foo.xml", `<testsuite>
  <testcase classname="FooTest" name="a">
    <error message="npe">trace</error>
  </testcase>
</testsuite>`)

	result := collect(t, New(Config{Module: "m", ResultsDir: dir, TolerancePercent: 0}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
}
