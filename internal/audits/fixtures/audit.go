// Package fixtures implements the test-fixture audit: every module must
// ship JSON fixtures under src/test/resources, each sized within a
// configured window, unless the module itself is whitelisted out of the
// presence requirement.
package fixtures

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/whitelist"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "FixturesAudit"

// Config carries the already-resolved fixtures.* configuration tunables.
// TolerancePercent, MinBytes, and MaxBytes should already be resolved to
// their defaults by the config loader when absent.
type Config struct {
	Module            string
	TolerancePercent  int
	MinBytes          int
	MaxBytes          int
	WhitelistPatterns []string
}

type fixtureFile struct {
	rel  string
	size int64
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		wl := whitelist.Compile(cfg.WhitelistPatterns)

		all := listFixtures(cfg.Module)
		var scoped []fixtureFile
		for _, f := range all {
			if wl.MatchesPath(f.rel) {
				continue
			}
			scoped = append(scoped, f)
		}

		var findings []audit.Finding
		moduleWhitelisted := wl.MatchesPath(filepath.Base(cfg.Module))

		if len(all) == 0 && !moduleWhitelisted {
			findings = append(findings, audit.NewFinding("MissingFixture", "no JSON fixtures found under src/test/resources"))
			sink.Enqueue(audit.New(cfg.Module, Name, findings, cfg.TolerancePercent, audit.Fail))
			return nil
		}

		tooSmall, oversize := 0, 0
		for _, f := range scoped {
			switch {
			case f.size < int64(cfg.MinBytes):
				tooSmall++
				sev := "warning"
				findings = append(findings, audit.NewFinding("FixtureTooSmall", "fixture is smaller than the minimum size").WithFile(f.rel, 0).WithSeverity(sev))
			case f.size > int64(cfg.MaxBytes):
				oversize++
				sev := "warning"
				findings = append(findings, audit.NewFinding("FixtureOversize", "fixture exceeds the maximum size").WithFile(f.rel, 0).WithSeverity(sev))
			}
		}

		total := len(scoped)
		status := audit.Pass
		if total > 0 && (tooSmall+oversize)*100 > cfg.TolerancePercent*total {
			status = audit.Fail
		}

		sink.Enqueue(audit.New(cfg.Module, Name, findings, cfg.TolerancePercent, status))
		return nil
	}
}

func listFixtures(moduleDir string) []fixtureFile {
	var out []fixtureFile
	root := filepath.Join(moduleDir, "src", "test", "resources")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // missing resources dir is not an error
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(moduleDir, path)
		if err != nil {
			return nil
		}
		out = append(out, fixtureFile{rel: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	return out
}
