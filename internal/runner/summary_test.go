package runner

import (
	"strings"
	"testing"

	"github.com/detentsh/testgate/internal/audit"
)

func TestFormatCountIntegerVsDecimal(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{3, "3"},
		{72.3, "72.3"},
		{100, "100"},
		{99.95, "100.0"},
	}
	for _, c := range cases {
		if got := formatCount(c.in); got != c.want {
			t.Errorf("formatCount(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSummaryRendersEveryRow(t *testing.T) {
	results := []audit.AuditResult{
		audit.New("app", "DetektAudit", nil, 10, audit.Pass),
		audit.NewWithCount("app", "CoverageAudit", nil, 70, 62.5, audit.Fail),
	}

	out := Summary(results)

	for _, want := range []string{"app", "DetektAudit", "CoverageAudit", "PASS", "FAIL", "62.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryEmptyResultsStillRenders(t *testing.T) {
	out := Summary(nil)
	if !strings.Contains(out, "MODULE") {
		t.Errorf("expected header row even with no results:\n%s", out)
	}
}
