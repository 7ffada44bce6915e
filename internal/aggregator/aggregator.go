// Package aggregator implements the end-of-build report: a thread-safe
// FIFO queue of AuditResult values, serialized once to a local JSON file,
// optionally uploaded, and reduced to a single pass/fail verdict.
package aggregator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nightlyone/lockfile"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/auditerr"
)

// Uploader is the optional side-effect port for publishing the final
// pretty JSON report. A nil URL or a non-nil error is treated identically:
// the online location is reported as "unavailable" and the build is not
// failed because of it.
type Uploader interface {
	UploadPrettyJSON(prettyJSON string) (url string, err error)
}

// BuildFailure is raised by Finalize when at least one enqueued
// AuditResult has Status = FAIL.
type BuildFailure struct {
	Message string
}

func (e *BuildFailure) Error() string { return e.Message }

// Aggregator implements audit.Sink. Enqueue is safe for concurrent use;
// Finalize must be called exactly once, after every audit has finished.
type Aggregator struct {
	mu            sync.Mutex
	results       []audit.AuditResult
	reportPath    string
	uploader      Uploader
	uploadEnabled bool
	logger        *slog.Logger
}

// New builds an Aggregator that will write its final report to reportPath
// and, if uploadEnabled, dispatch it through uploader (which may be nil
// when uploadEnabled is false).
func New(reportPath string, uploader Uploader, uploadEnabled bool, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		reportPath:    reportPath,
		uploader:      uploader,
		uploadEnabled: uploadEnabled,
		logger:        logger,
	}
}

// Enqueue implements audit.Sink.
func (a *Aggregator) Enqueue(r audit.AuditResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
}

// Snapshot returns a copy of the results enqueued so far, in enqueue
// order. Intended for display (e.g. the runner's terminal summary), not
// for feeding back into Finalize.
func (a *Aggregator) Snapshot() []audit.AuditResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.AuditResult, len(a.results))
	copy(out, a.results)
	return out
}

// Finalize snapshots the enqueued results in enqueue order, serializes and
// writes them, optionally uploads, and returns a *BuildFailure if any
// result failed. A write failure is returned as a *auditerr.ProcessingError.
// An empty snapshot returns nil without writing or uploading anything.
func (a *Aggregator) Finalize() error {
	a.mu.Lock()
	snapshot := make([]audit.AuditResult, len(a.results))
	copy(snapshot, a.results)
	a.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	body, err := serialize(snapshot)
	if err != nil {
		return auditerr.New("", a.reportPath, err)
	}

	if err := a.writeReport(body); err != nil {
		return err
	}

	onlineURL := "unavailable"
	if a.uploadEnabled && a.uploader != nil {
		if url, err := a.uploader.UploadPrettyJSON(string(body)); err != nil || url == "" {
			if err != nil {
				a.logger.Warn("report upload failed", "error", err)
			}
		} else {
			onlineURL = withJSONSuffix(url)
		}
	}

	var failing []string
	for _, r := range snapshot {
		if r.Status == audit.Fail {
			failing = append(failing, r.Module+":"+r.Name)
		}
	}
	if len(failing) == 0 {
		a.logger.Info("testgate passed", "audits", len(snapshot))
		return nil
	}

	return &BuildFailure{Message: fmt.Sprintf(
		"Build Failed. The following audits failed: %s\nLocal json: %s\nOnline json: %s",
		strings.Join(failing, ", "), a.reportPath, onlineURL,
	)}
}

// writeReport creates the report's parent directory if needed and writes
// body under a file lock, so concurrent test runs sharing a report path
// never interleave writes.
func (a *Aggregator) writeReport(body []byte) error {
	dir := filepath.Dir(a.reportPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return auditerr.New("", a.reportPath, err)
		}
	}

	absPath, err := filepath.Abs(a.reportPath)
	if err != nil {
		return auditerr.New("", a.reportPath, err)
	}
	lock, err := lockfile.New(absPath + ".lock")
	if err != nil {
		return auditerr.New("", a.reportPath, err)
	}
	if err := lock.TryLock(); err != nil {
		return auditerr.New("", a.reportPath, err)
	}
	defer lock.Unlock() //nolint:errcheck // best-effort release; the lock file's mtime governs staleness

	if err := os.WriteFile(a.reportPath, body, 0o644); err != nil {
		return auditerr.New("", a.reportPath, err)
	}
	return nil
}

// withJSONSuffix appends ".json" to url unless it already ends with it.
func withJSONSuffix(url string) string {
	if strings.HasSuffix(url, ".json") {
		return url
	}
	return url + ".json"
}
