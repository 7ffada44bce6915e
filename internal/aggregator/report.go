package aggregator

import (
	"bytes"
	"encoding/json"

	"github.com/detentsh/testgate/internal/audit"
)

// resultJSON mirrors AuditResult for serialization; key order is free per
// the report schema, so field order here just follows §3's listing.
type resultJSON struct {
	Module       string        `json:"module"`
	Name         string        `json:"name"`
	Findings     []findingJSON `json:"findings"`
	Tolerance    int           `json:"tolerance"`
	FindingCount float64       `json:"findingCount"`
	Status       string        `json:"status"`
}

type findingJSON struct {
	Type       string   `json:"type"`
	FilePath   *string  `json:"filePath"`
	Line       *int     `json:"line"`
	Severity   *string  `json:"severity"`
	Message    string   `json:"message"`
	Stacktrace []string `json:"stacktrace"`
}

// toJSON converts an AuditResult to its wire form, turning the sentinel
// empty-string/nil representations of "absent" into explicit JSON null.
func toJSON(r audit.AuditResult) resultJSON {
	findings := make([]findingJSON, 0, len(r.Findings))
	for _, f := range r.Findings {
		fj := findingJSON{
			Type:       f.Type,
			Message:    f.Message,
			Stacktrace: f.StackTrace,
		}
		if f.FilePath != "" {
			path := f.FilePath
			fj.FilePath = &path
		}
		if f.Line != nil {
			fj.Line = f.Line
		}
		if f.Severity != nil {
			fj.Severity = f.Severity
		}
		if fj.Stacktrace == nil {
			fj.Stacktrace = []string{}
		}
		findings = append(findings, fj)
	}
	return resultJSON{
		Module:       r.Module,
		Name:         r.Name,
		Findings:     findings,
		Tolerance:    r.Tolerance,
		FindingCount: r.FindingCount,
		Status:       string(r.Status),
	}
}

// serialize renders results as pretty JSON, escaping per RFC 8259: no HTML
// escaping of "<", ">", "&" (encoding/json's default, which this disables),
// and \uXXXX only for control characters without a short escape.
func serialize(results []audit.AuditResult) ([]byte, error) {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, toJSON(r))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
