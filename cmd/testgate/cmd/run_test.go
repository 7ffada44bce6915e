package cmd

import (
	"testing"

	"github.com/detentsh/testgate/internal/config"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("splitCSV(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitCSV(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestAuditsOmitsCompilationWithoutLog(t *testing.T) {
	defer func(orig string) { runFlags.compilationLog = orig }(runFlags.compilationLog)
	runFlags.compilationLog = ""

	list := audits(config.Default(), "app")
	if len(list) != 9 {
		t.Fatalf("len(audits) = %d, want 9 (compilation omitted without --compilation-log)", len(list))
	}
	for _, na := range list {
		if na.Label == "" || na.Audit == nil {
			t.Errorf("incomplete NamedAudit: %+v", na)
		}
	}
}
