// Package teststack implements the JVM-test coroutine-correctness audit:
// it bans Android/Robolectric/Espresso test infrastructure from pure JVM
// tests and flags coroutine-test misuse (blocking calls, ad hoc scheduler
// control without runTest, Dispatchers.Main without the shared rule).
package teststack

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/whitelist"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "TestStackAudit"

const (
	typeBannedImport       = "BANNED_IMPORT"
	typeBannedAnnotation   = "BANNED_ANNOTATION"
	typeCoroutinesMisuse   = "COROUTINES_MISUSE"
	typeMissingMainRule    = "MISSING_MAIN_DISPATCHER_RULE"
)

var (
	bannedImportPrefixes = []string{
		"androidx.test.",
		"org.robolectric.",
		"androidx.test.espresso.",
		"androidx.compose.ui.test.",
	}
	bannedImportExact = "org.junit.Test"

	bannedAnnotation = regexp.MustCompile(`@(?:org\.junit\.[\w.]*\.)?(?:Ignore|Disabled\w*)\b`)

	schedulerTokens = []string{
		"advanceUntilIdle(",
		"advanceTimeBy(",
		"runCurrent(",
		"TestCoroutineScheduler",
		"StandardTestDispatcher",
		"UnconfinedTestDispatcher",
		"TestScope",
	}
	runBlockingToken = regexp.MustCompile(`runBlocking\s*[({]`)
	threadSleepToken = "Thread.sleep("
	runTestToken     = regexp.MustCompile(`runTest\s*[({]`)

	mainDispatcherToken = regexp.MustCompile(`Dispatchers\.Main\b|viewModelScope\b`)
	mainDispatcherRule   = "MainDispatcherRule"
)

// Config carries the already-resolved stack.* configuration tunables.
type Config struct {
	Module            string
	WhitelistPatterns []string
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		wl := whitelist.Compile(cfg.WhitelistPatterns)

		var findings []audit.Finding
		for _, rel := range listTestKotlinFiles(cfg.Module) {
			if wl.MatchesPath(rel) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(cfg.Module, filepath.FromSlash(rel)))
			if err != nil {
				continue
			}
			findings = append(findings, scanFile(rel, string(data))...)
		}

		status := audit.Pass
		if len(findings) > 0 {
			status = audit.Fail
		}
		sink.Enqueue(audit.New(cfg.Module, Name, findings, 0, status))
		return nil
	}
}

func scanFile(rel, content string) []audit.Finding {
	var findings []audit.Finding
	lines := strings.Split(content, "\n")

	if line, ok := firstBannedImport(lines); ok {
		findings = append(findings, audit.NewFinding(typeBannedImport, "banned test-stack import").WithFile(rel, line))
	}
	if line, ok := firstMatch(lines, bannedAnnotation); ok {
		findings = append(findings, audit.NewFinding(typeBannedAnnotation, "banned annotation disables a test").WithFile(rel, line))
	}
	if line, ok := coroutinesMisuse(lines); ok {
		findings = append(findings, audit.NewFinding(typeCoroutinesMisuse, "coroutine test control used outside runTest").WithFile(rel, line))
	}
	if line, ok := missingMainDispatcherRule(content, lines); ok {
		findings = append(findings, audit.NewFinding(typeMissingMainRule, "Dispatchers.Main/viewModelScope used without MainDispatcherRule").WithFile(rel, line))
	}
	return findings
}

func firstBannedImport(lines []string) (int, bool) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "import ") {
			continue
		}
		imp := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "import")), ";")
		if imp == bannedImportExact {
			return i + 1, true
		}
		for _, prefix := range bannedImportPrefixes {
			if strings.HasPrefix(imp, prefix) {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func firstMatch(lines []string, re *regexp.Regexp) (int, bool) {
	for i, line := range lines {
		if re.MatchString(line) {
			return i + 1, true
		}
	}
	return 0, false
}

func coroutinesMisuse(lines []string) (int, bool) {
	hasRunTest := false
	for _, line := range lines {
		if runTestToken.MatchString(line) {
			hasRunTest = true
			break
		}
	}
	if hasRunTest {
		return 0, false
	}
	for i, line := range lines {
		if runBlockingToken.MatchString(line) || strings.Contains(line, threadSleepToken) {
			return i + 1, true
		}
		for _, tok := range schedulerTokens {
			if strings.Contains(line, tok) {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func missingMainDispatcherRule(content string, lines []string) (int, bool) {
	if strings.Contains(content, mainDispatcherRule) {
		return 0, false
	}
	return firstMatch(lines, mainDispatcherToken)
}

func listTestKotlinFiles(moduleDir string) []string {
	var out []string
	root := filepath.Join(moduleDir, "src", "test", "kotlin")
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // missing source set is not an error
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".kt" {
			return nil
		}
		rel, err := filepath.Rel(moduleDir, path)
		if err != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out
}
