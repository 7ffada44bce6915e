package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/detentsh/testgate/internal/audit"
)

func writeReport(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "testDebugUnitTestReport.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
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

func TestMethodCountersIgnored(t *testing.T) {
	report := writeReport(t, `<?xml version="1.0"?>
<report>
  <package>
    <class name="com/example/Foo">
      <method name="bar">
        <counter type="BRANCH" missed="100" covered="0"/>
      </method>
      <counter type="BRANCH" missed="0" covered="10"/>
    </class>
  </package>
</report>`)

	result := collect(t, New(Config{Module: "m", ReportPath: report, MinPercent: 70}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS (method counter must be ignored)", result.Status)
	}
	if result.FindingCount != 100 {
		t.Errorf("FindingCount = %v, want 100.0", result.FindingCount)
	}
}

func TestBelowThresholdProducesSortedFindings(t *testing.T) {
	report := writeReport(t, `<?xml version="1.0"?>
<report>
  <package>
    <class name="com/example/A">
      <counter type="BRANCH" missed="8" covered="2"/>
    </class>
    <class name="com/example/B">
      <counter type="BRANCH" missed="9" covered="1"/>
    </class>
  </package>
</report>`)

	result := collect(t, New(Config{Module: "m", ReportPath: report, MinPercent: 70}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
	if len(result.Findings) != 2 {
		t.Fatalf("Findings = %+v, want 2", result.Findings)
	}
	if result.Findings[0].FilePath != "com/example/B" {
		t.Errorf("Findings[0] = %+v, want B first (lower percent)", result.Findings[0])
	}
}

func TestWhitelistedClassExcludedFromTotalsAndOffenders(t *testing.T) {
	report := writeReport(t, `<?xml version="1.0"?>
<report>
  <package>
    <class name="com/example/Good">
      <counter type="BRANCH" missed="0" covered="10"/>
    </class>
    <class name="com/example/Bad">
      <counter type="BRANCH" missed="10" covered="0"/>
    </class>
  </package>
</report>`)

	result := collect(t, New(Config{
		Module:            "m",
		ReportPath:        report,
		MinPercent:        70,
		WhitelistPatterns: []string{"com/example/Bad"},
	}))
	if result.Status != audit.Pass {
		t.Fatalf("Status = %v, want PASS once Bad is whitelisted out", result.Status)
	}
	if result.FindingCount != 100 {
		t.Errorf("FindingCount = %v, want 100.0 (Bad excluded from totals)", result.FindingCount)
	}
}

func TestZeroDenominatorClassSkipsOffenderListButNotTotals(t *testing.T) {
	report := writeReport(t, `<?xml version="1.0"?>
<report>
  <package>
    <class name="com/example/Empty">
      <counter type="BRANCH" missed="0" covered="0"/>
    </class>
    <class name="com/example/Bad">
      <counter type="BRANCH" missed="10" covered="0"/>
    </class>
  </package>
</report>`)

	result := collect(t, New(Config{Module: "m", ReportPath: report, MinPercent: 70}))
	if result.Status != audit.Fail {
		t.Fatalf("Status = %v, want FAIL", result.Status)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("Findings = %+v, want only Bad (Empty has zero denominator)", result.Findings)
	}
}

func TestMissingReportIsProcessingError(t *testing.T) {
	err := New(Config{Module: "m", ReportPath: "/nonexistent/report.xml", MinPercent: 70})(audit.SinkFunc(func(audit.AuditResult) {
		t.Error("callback should not run on processing error")
	}))
	if err == nil {
		t.Fatal("expected processing error")
	}
}
