// Package detekt implements the static-analysis audit over a Checkstyle-
// formatted Detekt XML report: one finding per non-whitelisted error-level
// issue, gated by a hard-fail rule-ID list and a soft percentage tolerance.
package detekt

import (
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/srcscan"
	"github.com/detentsh/testgate/internal/whitelist"
	"github.com/detentsh/testgate/internal/xmlutil"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "DetektAudit"

// DefaultTolerancePercent is the documented default for detekt.tolerancePercent.
// New does not apply it; Config.TolerancePercent is used as given.
const DefaultTolerancePercent = 10

// checkstyle mirrors the subset of the Checkstyle XML schema Detekt emits.
type checkstyle struct {
	XMLName xml.Name        `xml:"checkstyle"`
	Files   []checkstyleFile `xml:"file"`
}

type checkstyleFile struct {
	Name   string           `xml:"name,attr"`
	Errors []checkstyleError `xml:"error"`
}

type checkstyleError struct {
	Line     int    `xml:"line,attr"`
	Column   int    `xml:"column,attr"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Source   string `xml:"source,attr"`
}

var (
	bracketedRuleID = regexp.MustCompile(`\[([A-Za-z][\w]*)\]`)
	prefixedRuleID  = regexp.MustCompile(`(?i)ruleId:\s*([A-Za-z][\w]*)`)
)

// Config carries the already-resolved detekt.* configuration tunables.
// TolerancePercent should already be resolved to DefaultTolerancePercent
// by the config loader when the key is absent; it is taken as-is here.
type Config struct {
	Module            string
	ReportPath        string
	TolerancePercent  int
	WhitelistPatterns []string
	HardFailRuleIDs   []string
}

// New returns an Audit bound to cfg. The report is parsed and scored when
// the returned Audit is invoked, not at construction time.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		tolerance := cfg.TolerancePercent
		wl := whitelist.Compile(cfg.WhitelistPatterns)
		hard := make(map[string]bool, len(cfg.HardFailRuleIDs))
		for _, id := range cfg.HardFailRuleIDs {
			hard[id] = true
		}

		var doc checkstyle
		if err := xmlutil.Decode(Name, cfg.ReportPath, &doc); err != nil {
			return err
		}

		scanned := srcscan.CountSourceFiles(cfg.Module)

		var findings []audit.Finding
		hardCount, softCount := 0, 0
		for _, file := range doc.Files {
			if wl.MatchesPath(file.Name) {
				continue
			}
			for _, e := range file.Errors {
				if !strings.EqualFold(e.Severity, "error") {
					continue
				}
				ruleID := extractRuleID(e.Source, e.Message)
				f := audit.NewFinding(ruleID, e.Message).WithFile(file.Name, e.Line).WithSeverity(e.Severity)
				findings = append(findings, f)

				if hard[ruleID] {
					hardCount++
				} else {
					softCount++
				}
			}
		}

		status := audit.Pass
		if hardCount > 0 {
			status = audit.Fail
		} else if float64(softCount)/float64(scanned) > float64(tolerance)/100 {
			status = audit.Fail
		}

		sink.Enqueue(audit.New(cfg.Module, Name, findings, tolerance, status))
		return nil
	}
}

// extractRuleID resolves a Detekt rule identifier using the documented
// precedence: the "source" attribute first (stripping a "detekt." prefix,
// otherwise taking its simple name), then a bracketed "[RuleId]" token in
// the message, then a "ruleId:" prefix, and finally "Unknown".
func extractRuleID(source, message string) string {
	if source != "" {
		id := strings.TrimPrefix(source, "detekt.")
		if idx := strings.LastIndex(id, "."); idx >= 0 {
			id = id[idx+1:]
		}
		if id != "" {
			return id
		}
	}
	if m := bracketedRuleID.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := prefixedRuleID.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return "Unknown"
}
