// Package lint implements the Android Lint audit over a format-6 lint XML
// report: one finding per (issue, location) pair, counting only Error and
// Fatal severities against a per-file-scanned tolerance.
package lint

import (
	"encoding/xml"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/srcscan"
	"github.com/detentsh/testgate/internal/whitelist"
	"github.com/detentsh/testgate/internal/xmlutil"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "AndroidLintAudit"

// issuesReport mirrors the subset of Android Lint's format-6 XML schema.
type issuesReport struct {
	XMLName xml.Name     `xml:"issues"`
	Issues  []lintIssue `xml:"issue"`
}

type lintIssue struct {
	ID         string         `xml:"id,attr"`
	Severity   string         `xml:"severity,attr"`
	Message    string         `xml:"message,attr"`
	Locations  []lintLocation `xml:"location"`
}

type lintLocation struct {
	File   string `xml:"file,attr"`
	Line   int    `xml:"line,attr"`
	Column int    `xml:"column,attr"`
}

// Config carries the already-resolved lint.* configuration tunables.
// TolerancePercent should already be resolved to its default by the
// config loader when the key is absent; it is taken as-is here.
type Config struct {
	Module            string
	ReportPath        string
	TolerancePercent  int
	WhitelistPatterns []string
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		wl := whitelist.Compile(cfg.WhitelistPatterns)

		var doc issuesReport
		if err := xmlutil.Decode(Name, cfg.ReportPath, &doc); err != nil {
			return err
		}

		scanned := srcscan.CountSourceFiles(cfg.Module)

		var findings []audit.Finding
		for _, issue := range doc.Issues {
			if !isCountedSeverity(issue.Severity) {
				continue
			}
			locs := issue.Locations
			if len(locs) == 0 {
				locs = []lintLocation{{}}
			}
			for _, loc := range locs {
				if loc.File != "" && wl.MatchesPath(loc.File) {
					continue
				}
				f := audit.NewFinding(issue.ID, issue.Message).WithSeverity(issue.Severity)
				if loc.File != "" {
					f = f.WithFile(loc.File, loc.Line)
				}
				findings = append(findings, f)
			}
		}

		status := audit.Pass
		if float64(len(findings))/float64(scanned) > float64(cfg.TolerancePercent)/100 {
			status = audit.Fail
		}

		sink.Enqueue(audit.New(cfg.Module, Name, findings, cfg.TolerancePercent, status))
		return nil
	}
}

// isCountedSeverity reports whether sev is Error or Fatal, case-insensitive.
func isCountedSeverity(sev string) bool {
	return strings.EqualFold(sev, "Error") || strings.EqualFold(sev, "Fatal")
}
