// Package xmlutil provides a secure, bounded XML decode used by the
// report-format audits (Detekt, Android Lint, JaCoCo). Go's
// encoding/xml neither resolves external entities nor expands a
// DOCTYPE-declared internal subset, so a plain Decoder already gives the
// "external-entity and DOCTYPE disabled" posture the source tool reports
// need without reaching for a third-party DOM library.
package xmlutil

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/detentsh/testgate/internal/auditerr"
)

// maxReportSize bounds how large a tool report file we will read, as
// defense against a misbehaving tool writing an unbounded report.
const maxReportSize = 64 * 1024 * 1024 // 64MB

// Decode opens path and unmarshals its XML content into v. A missing file
// or malformed document is reported as a *auditerr.ProcessingError, naming
// audit and path, never as a silent zero value.
func Decode(audit, path string, v any) error {
	info, err := os.Stat(path)
	if err != nil {
		return auditerr.New(audit, path, err)
	}
	if info.Size() > maxReportSize {
		return auditerr.New(audit, path, fmt.Errorf("report exceeds %d bytes", maxReportSize))
	}

	f, err := os.Open(path)
	if err != nil {
		return auditerr.New(audit, path, err)
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	// Entity is left nil (the default): encoding/xml does not expand
	// external entities or DOCTYPE-declared subsets on its own, so this
	// decoder is already immune to XXE without extra configuration.
	decoder.Strict = true

	if err := decoder.Decode(v); err != nil {
		return auditerr.New(audit, path, fmt.Errorf("parsing xml: %w", err))
	}
	return nil
}
