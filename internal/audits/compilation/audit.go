// Package compilation implements the compiler-stderr audit: a thread-safe
// capture buffer (Capture) feeds a multi-format error-start/continuation
// parser that recognizes Kotlin, javac, and annotation-processor error
// shapes, with any parsed error failing the build.
package compilation

import (
	"path/filepath"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "CompilationAudit"

// Config binds the audit to a module directory, used to normalize
// absolute paths found in the captured stream to module-relative form.
type Config struct {
	Module  string
	Capture *Capture
}

// New returns an Audit bound to cfg. The buffer's current Snapshot is
// parsed when the returned Audit is invoked.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		errs := parse(cfg.Capture.Snapshot())

		var findings []audit.Finding
		for _, e := range errs {
			path := normalizePath(cfg.Module, e.path)
			f := audit.NewFinding("CompilationError", strings.TrimSpace(e.message))
			if path != "" {
				f = f.WithFile(path, e.line)
			}
			if len(e.stackTrace) > 0 {
				f = f.WithStackTrace(e.stackTrace)
			}
			findings = append(findings, f)
		}

		status := audit.Pass
		if len(findings) > 0 {
			status = audit.Fail
		}
		sink.Enqueue(audit.New(cfg.Module, Name, findings, 0, status))
		return nil
	}
}

// normalizePath converts an absolute path under moduleDir to a
// module-relative forward-slash form; any other path (including an empty
// one, from the ksp-short error shape) is returned as-is.
func normalizePath(moduleDir, path string) string {
	if path == "" || moduleDir == "" {
		return path
	}
	absModule, err := filepath.Abs(moduleDir)
	if err != nil {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absModule, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
