// Package runner implements the audit-runner orchestration: invoking every
// configured audit concurrently, collecting results through the shared
// sink, and rendering a terminal pass/fail summary.
package runner

import (
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/detentsh/testgate/internal/audit"
)

// NamedAudit pairs an audit with the label used in logs and the summary
// table when the Audit value itself doesn't carry one (closures have no
// reflectable name).
type NamedAudit struct {
	Label string
	Audit audit.Audit
}

// Runner invokes a set of audits concurrently against a shared sink.
type Runner struct {
	sink   audit.Sink
	logger *slog.Logger
}

// New returns a Runner that delivers every audit's result to sink.
func New(sink audit.Sink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{sink: sink, logger: logger}
}

// Run invokes every audit concurrently via errgroup, returning the first
// processing error encountered (if any). The Audit contract carries no
// context and the core defines no cancellation model, so siblings are not
// aborted early; Run simply waits for all of them and surfaces the first
// failure.
func (r *Runner) Run(audits []NamedAudit) error {
	var g errgroup.Group
	for _, na := range audits {
		na := na
		g.Go(func() error {
			r.logger.Debug("running audit", "audit", na.Label)
			if err := na.Audit(r.sink); err != nil {
				r.logger.Error("audit processing error", "audit", na.Label, "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
