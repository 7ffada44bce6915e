// Package coverage implements the branch-coverage audit over a JaCoCo-style
// XML report: only each class's own BRANCH counter is aggregated (method-
// level counters are ignored), and the module's overall branch percentage
// is reported as the result's numeric findingCount.
package coverage

import (
	"encoding/xml"
	"fmt"
	"math"
	"sort"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/whitelist"
	"github.com/detentsh/testgate/internal/xmlutil"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "CoverageBranchesAudit"

type jacocoReport struct {
	XMLName  xml.Name       `xml:"report"`
	Packages []jacocoPackage `xml:"package"`
}

type jacocoPackage struct {
	Classes []jacocoClass `xml:"class"`
}

type jacocoClass struct {
	Name     string         `xml:"name,attr"`
	Counters []jacocoCounter `xml:"counter"`
}

type jacocoCounter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

// Config carries the already-resolved coverage.* configuration tunables.
// MinPercent should already be resolved to its default (70) by the
// config loader when absent.
type Config struct {
	Module            string
	ReportPath        string
	MinPercent        int
	WhitelistPatterns []string
}

type classCoverage struct {
	name    string
	covered int
	missed  int
}

func (c classCoverage) percent() float64 {
	total := c.covered + c.missed
	if total == 0 {
		return 0
	}
	return float64(c.covered) / float64(total) * 100
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		wl := whitelist.Compile(cfg.WhitelistPatterns)

		var doc jacocoReport
		if err := xmlutil.Decode(Name, cfg.ReportPath, &doc); err != nil {
			return err
		}

		var classes []classCoverage
		for _, pkg := range doc.Packages {
			for _, cls := range pkg.Classes {
				if wl.MatchesFqcnOrSymbol(cls.Name) {
					continue
				}
				covered, missed := 0, 0
				for _, c := range cls.Counters {
					if c.Type == "BRANCH" {
						covered, missed = c.Covered, c.Missed
					}
				}
				classes = append(classes, classCoverage{name: cls.Name, covered: covered, missed: missed})
			}
		}

		totalCovered, totalMissed := 0, 0
		for _, c := range classes {
			totalCovered += c.covered
			totalMissed += c.missed
		}
		totalPct := 0.0
		if totalCovered+totalMissed > 0 {
			totalPct = roundToOneDecimal(float64(totalCovered) / float64(totalCovered+totalMissed) * 100)
		}

		status := audit.Pass
		var findings []audit.Finding
		if totalPct < float64(cfg.MinPercent) {
			status = audit.Fail
			var offenders []classCoverage
			for _, c := range classes {
				if c.covered+c.missed > 0 && c.percent() < float64(cfg.MinPercent) {
					offenders = append(offenders, c)
				}
			}
			sort.Slice(offenders, func(i, j int) bool { return offenders[i].percent() < offenders[j].percent() })
			for _, c := range offenders {
				findings = append(findings, audit.NewFinding(
					"ClassBelowThreshold",
					fmt.Sprintf("%s is %.1f%% branch coverage, below threshold %d%%", c.name, c.percent(), cfg.MinPercent),
				).WithFile(c.name, 0))
			}
		}

		sink.Enqueue(audit.NewWithCount(cfg.Module, Name, findings, cfg.MinPercent, totalPct, status))
		return nil
	}
}

func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
