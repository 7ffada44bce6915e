// Package tests implements the JUnit-XML test-result audit: it classifies
// every testcase as passed, failed, or skipped, and gates on the
// post-whitelist failure rate.
package tests

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/auditerr"
	"github.com/detentsh/testgate/internal/whitelist"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "TestsAudit"

type junitSuite struct {
	XMLName xml.Name    `xml:"testsuite"`
	Cases   []junitCase `xml:"testcase"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Failure   *junitOutcome `xml:"failure"`
	Error     *junitOutcome `xml:"error"`
	Skipped   *struct{}     `xml:"skipped"`
}

type junitOutcome struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

// Config carries the already-resolved tests.* configuration tunables
// and the task names that produced ResultsDir, surfaced in the processing
// error when the directory exists but holds no XML.
type Config struct {
	Module            string
	ResultsDir        string
	TolerancePercent  int
	WhitelistPatterns []string
	TaskNames         []string
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		info, err := os.Stat(cfg.ResultsDir)
		if err != nil || !info.IsDir() {
			slog.Warn("tests audit: results directory missing, treating as pass", "module", cfg.Module, "dir", cfg.ResultsDir)
			sink.Enqueue(audit.New(cfg.Module, Name, nil, cfg.TolerancePercent, audit.Pass))
			return nil
		}

		xmlFiles, err := listXMLFiles(cfg.ResultsDir)
		if err != nil {
			return auditerr.New(Name, cfg.ResultsDir, err)
		}
		if len(xmlFiles) == 0 {
			msg := "no JUnit XML results found"
			if len(cfg.TaskNames) > 0 {
				msg += " for tasks: " + strings.Join(cfg.TaskNames, ", ")
			}
			return auditerr.New(Name, cfg.ResultsDir, fmt.Errorf("%s", msg))
		}

		wl := whitelist.Compile(cfg.WhitelistPatterns)

		var findings []audit.Finding
		executed, failedCount := 0, 0

		for _, path := range xmlFiles {
			var suite junitSuite
			data, err := os.ReadFile(path) //nolint:gosec // path enumerated from ResultsDir
			if err != nil {
				return auditerr.New(Name, path, err)
			}
			if err := xml.Unmarshal(data, &suite); err != nil {
				return auditerr.New(Name, path, err)
			}

			for _, tc := range suite.Cases {
				if wl.MatchesFqcnOrSymbol(tc.ClassName+"#"+tc.Name) || wl.MatchesFqcnOrSymbol(tc.ClassName) {
					continue
				}
				if tc.Skipped != nil {
					continue
				}
				executed++
				outcome := tc.Failure
				if outcome == nil {
					outcome = tc.Error
				}
				if outcome == nil {
					continue
				}
				failedCount++
				findings = append(findings, audit.NewFinding(
					"TestFailure",
					fmt.Sprintf("%s#%s: %s", tc.ClassName, tc.Name, firstLine(outcome)),
				).WithFile(tc.ClassName, 0).WithStackTrace(splitLines(outcome.Text)))
			}
		}

		status := audit.Pass
		if executed > 0 && float64(failedCount)/float64(executed)*100 > float64(cfg.TolerancePercent) {
			status = audit.Fail
		}

		sink.Enqueue(audit.New(cfg.Module, Name, findings, cfg.TolerancePercent, status))
		return nil
	}
}

func firstLine(o *junitOutcome) string {
	if o.Message != "" {
		return strings.SplitN(o.Message, "\n", 2)[0]
	}
	trimmed := strings.TrimSpace(o.Text)
	return strings.SplitN(trimmed, "\n", 2)[0]
}

func splitLines(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func listXMLFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
