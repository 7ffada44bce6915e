// Package harness implements the test-harness reuse/isolation audit: test
// code in the data/sync/ui areas must depend on that area's shared helper
// set (Rule A), and no package outside the harness may redeclare a type
// whose simple name collides with a harness helper (Rule B).
package harness

import (
	"path/filepath"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/srcscan"
	"github.com/detentsh/testgate/internal/whitelist"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "HarnessReuseIsolationAudit"

const (
	areaData = "data"
	areaSync = "sync"
	areaUI   = "ui"
)

// Config names the project's root package, its harness package prefix, and
// the area-specific helper sets Rule A checks imports against.
type Config struct {
	Module               string
	RootPackage          string
	HarnessPackagePrefix string
	DataHelpers          []string
	SyncHelpers          []string
	UIHelpers            []string
	// CrossLayerHelpers names helpers shared across areas. They count toward
	// Rule B's protected simple-name set but never satisfy Rule A's
	// area-specific import requirement.
	CrossLayerHelpers []string
	WhitelistPatterns []string
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		wl := whitelist.Compile(cfg.WhitelistPatterns)
		areaHelpers := map[string]*whitelist.Matcher{
			areaData: whitelist.Compile(cfg.DataHelpers),
			areaSync: whitelist.Compile(cfg.SyncHelpers),
			areaUI:   whitelist.Compile(cfg.UIHelpers),
		}
		simpleNames := simpleNameSet(cfg.DataHelpers, cfg.SyncHelpers, cfg.UIHelpers, cfg.CrossLayerHelpers)

		var findings []audit.Finding
		findings = append(findings, ruleA(cfg, wl, areaHelpers)...)
		findings = append(findings, ruleB(cfg, wl, simpleNames)...)

		status := audit.Pass
		if len(findings) > 0 {
			status = audit.Fail
		}
		sink.Enqueue(audit.New(cfg.Module, Name, findings, 0, status))
		return nil
	}
}

// ruleA checks every test-scope file whose package falls in the data/sync/ui
// area for at least one import from that area's helper set.
func ruleA(cfg Config, wl *whitelist.Matcher, areaHelpers map[string]*whitelist.Matcher) []audit.Finding {
	var findings []audit.Finding
	for _, rel := range srcscan.ListSourceFiles(cfg.Module) {
		if !strings.HasPrefix(rel, "src/test/") {
			continue
		}
		header, err := srcscan.ReadHeader(pathJoin(cfg.Module, rel))
		if err != nil || header.Package == "" {
			continue
		}

		area := areaOf(cfg.RootPackage, header.Package)
		if area == "" {
			continue
		}

		if importsWhitelisted(header.Imports, wl) {
			continue
		}

		matcher := areaHelpers[area]
		if hasAreaHelperImport(header.Imports, matcher) {
			continue
		}

		findings = append(findings, audit.NewFinding(
			"MissingHarnessDependency",
			"test file in area "+area+" does not import a "+area+" helper",
		).WithFile(rel, 0))
	}
	return findings
}

// ruleB flags top-level declarations outside the harness package whose
// simple name collides with a harness helper's simple name.
func ruleB(cfg Config, wl *whitelist.Matcher, simpleNames map[string]bool) []audit.Finding {
	var findings []audit.Finding
	for _, rel := range srcscan.ListSourceFilesUnder(cfg.Module) {
		header, err := srcscan.ReadHeader(pathJoin(cfg.Module, rel))
		if err != nil {
			continue
		}
		if cfg.HarnessPackagePrefix != "" && strings.HasPrefix(header.Package, cfg.HarnessPackagePrefix) {
			continue
		}
		for _, decl := range header.Declarations {
			if !simpleNames[decl.Name] {
				continue
			}
			fqcn := decl.Name
			if header.Package != "" {
				fqcn = header.Package + "." + decl.Name
			}
			if wl.MatchesFqcnOrSymbol(fqcn) {
				continue
			}
			findings = append(findings, audit.NewFinding(
				"LocalHelperClone",
				"declaration "+decl.Name+" shadows a harness helper name",
			).WithFile(rel, decl.Line))
		}
	}
	return findings
}

// areaOf returns "data", "sync", or "ui" when pkg falls under
// root.<area>, else "".
func areaOf(root, pkg string) string {
	for _, area := range []string{areaData, areaSync, areaUI} {
		if pkg == root+"."+area || strings.HasPrefix(pkg, root+"."+area+".") {
			return area
		}
	}
	return ""
}

func importsWhitelisted(imports []string, wl *whitelist.Matcher) bool {
	for _, imp := range imports {
		if wl.MatchesFqcnOrSymbol(imp) {
			return true
		}
	}
	return false
}

func hasAreaHelperImport(imports []string, matcher *whitelist.Matcher) bool {
	for _, imp := range imports {
		if matcher.MatchesFqcnOrSymbol(imp) {
			return true
		}
	}
	return false
}

func simpleNameSet(sets ...[]string) map[string]bool {
	out := map[string]bool{}
	for _, set := range sets {
		for _, fqcn := range set {
			name := fqcn
			if idx := strings.LastIndex(fqcn, "."); idx >= 0 {
				name = fqcn[idx+1:]
			}
			out[name] = true
		}
	}
	return out
}

func pathJoin(module, rel string) string {
	return filepath.Join(module, filepath.FromSlash(rel))
}
