// Package structure implements the test-source layout audit: it bans the
// sharedTest source set outright, requires JVM tests to live under
// src/test/kotlin, requires a harness dependency whenever test sources
// exist, and bounds which packages instrumented (androidTest) code may
// import.
package structure

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/srcscan"
	"github.com/detentsh/testgate/internal/whitelist"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "StructureAudit"

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
)

// Config carries the already-resolved structure.* configuration tunables,
// plus the harness coordinate and instrumented root package that have no
// dedicated config key of their own (they are fixed by project layout).
type Config struct {
	Module                       string
	HarnessCoordinate            string
	InstrumentedRootPackage      string
	InstrumentedAllowList        []string
	InstrumentedTolerancePercent int
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		var findings []audit.Finding

		sharedTest := srcscan.ListSourceFilesUnder(cfg.Module)
		hasTestSource := false
		hasTestResources := false

		for _, rel := range sharedTest {
			switch {
			case strings.HasPrefix(rel, "src/sharedTest/"):
				findings = append(findings, audit.NewFinding(
					"BannedSharedTest", "src/sharedTest is not permitted",
				).WithFile(rel, 0))
			case strings.HasPrefix(rel, "src/test/"):
				hasTestSource = true
				if isMisplacedTestFile(rel) {
					findings = append(findings, audit.NewFinding(
						"MisplacedTestFile", "JVM test sources must live under src/test/kotlin",
					).WithFile(rel, 0))
				}
			}
		}
		if hasResourcesUnder(cfg.Module, "src/test/resources") {
			hasTestResources = true
		}

		if hasTestSource || hasTestResources {
			if !buildFileDeclaresHarness(cfg.Module, cfg.HarnessCoordinate) {
				findings = append(findings, audit.NewFinding(
					"MissingHarnessDependency", "test sources present but build file does not depend on the harness module",
				))
			}
		}

		instrumentedFindings, androidTestFiles, offendingFiles := instrumentedScope(cfg)
		findings = append(findings, instrumentedFindings...)

		status := audit.Pass
		structuralFindings := len(findings) - len(instrumentedFindings)
		if structuralFindings > 0 {
			status = audit.Fail
		}
		if androidTestFiles > 0 {
			if float64(offendingFiles)/float64(androidTestFiles)*100 > float64(cfg.InstrumentedTolerancePercent) {
				status = audit.Fail
			}
		}

		sink.Enqueue(audit.New(cfg.Module, Name, findings, cfg.InstrumentedTolerancePercent, status))
		return nil
	}
}

// isMisplacedTestFile reports whether a file under src/test/ violates the
// "java files anywhere, kotlin only under kotlin/" rule.
func isMisplacedTestFile(rel string) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	if ext == ".java" {
		return true
	}
	if ext == ".kt" && !strings.HasPrefix(rel, "src/test/kotlin/") {
		return true
	}
	return false
}

func hasResourcesUnder(module, relDir string) bool {
	entries, err := os.ReadDir(filepath.Join(module, filepath.FromSlash(relDir)))
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// buildFileDeclaresHarness reads build.gradle / build.gradle.kts (whichever
// exists), strips comments, and checks for a testImplementation dependency
// on coordinate in either parenthesized or unparenthesized form.
func buildFileDeclaresHarness(module, coordinate string) bool {
	if coordinate == "" {
		return true
	}
	for _, name := range []string{"build.gradle.kts", "build.gradle"} {
		data, err := os.ReadFile(filepath.Join(module, name))
		if err != nil {
			continue
		}
		content := stripComments(string(data))
		for _, re := range harnessPatterns(coordinate) {
			if re.MatchString(content) {
				return true
			}
		}
	}
	return false
}

func stripComments(content string) string {
	content = blockComment.ReplaceAllString(content, "")
	content = lineComment.ReplaceAllString(content, "")
	return content
}

func harnessPatterns(coordinate string) []*regexp.Regexp {
	q := regexp.QuoteMeta(coordinate)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)testImplementation\s*\(\s*project\s*\(\s*['"]` + q + `['"]\s*\)\s*\)`),
		regexp.MustCompile(`(?i)testImplementation\s+project\s*\(\s*['"]` + q + `['"]\s*\)`),
	}
}

// instrumentedScope checks androidTest imports against the configured
// allow-list, returning the findings, the total androidTest file count,
// and the count of files with at least one offending import.
func instrumentedScope(cfg Config) (findings []audit.Finding, totalFiles, offendingFiles int) {
	allow := whitelist.Compile(cfg.InstrumentedAllowList)
	for _, rel := range srcscan.ListSourceFilesUnder(cfg.Module) {
		if !strings.HasPrefix(rel, "src/androidTest/") {
			continue
		}
		totalFiles++
		header, err := srcscan.ReadHeader(filepath.Join(cfg.Module, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		fileOffends := false
		for _, imp := range header.Imports {
			if cfg.InstrumentedRootPackage != "" && !strings.HasPrefix(imp, cfg.InstrumentedRootPackage) {
				continue
			}
			if allow.MatchesFqcnOrSymbol(imp) {
				continue
			}
			fileOffends = true
			findings = append(findings, audit.NewFinding(
				"DisallowedInstrumentedImport", "import "+imp+" is not on the instrumented allow-list",
			).WithFile(rel, 0))
		}
		if fileOffends {
			offendingFiles++
		}
	}
	return findings, totalFiles, offendingFiles
}
