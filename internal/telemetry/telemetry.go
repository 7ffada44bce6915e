// Package telemetry reports CLI crashes and processing errors to Sentry so
// a CI-wide failure pattern across many module runs can be tracked, without
// requiring a developer to go spelunking through CI logs. It is inert by
// default: without a DSN, every call here is a no-op.
package telemetry

import (
	"context"
	"net/http"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	flushTimeout      = 2 * time.Second
	httpClientTimeout = 10 * time.Second
)

// homePathPattern scrubs the invoking user's home directory out of any
// module path that ends up in an error message or stack frame.
var homePathPattern = regexp.MustCompile(`(?i)(/home/|/Users/|C:\\Users\\)([^/\\:]+)`)

// DSN is injected at build time via ldflags for release builds:
//
//	go build -ldflags "-X github.com/detentsh/testgate/internal/telemetry.DSN=https://..."
//
// Empty by default, which disables reporting entirely.
var DSN string

// Init configures the Sentry SDK for the given testgate version and
// returns a cleanup function the caller must defer. Respects the
// DO_NOT_TRACK convention (https://consoledonottrack.com/) and a
// testgate-specific opt-out, and is a no-op when no DSN is configured.
func Init(version string) func() {
	if os.Getenv("DO_NOT_TRACK") == "1" || os.Getenv("TESTGATE_NO_TELEMETRY") == "1" {
		return func() {}
	}

	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		dsn = DSN
	}
	if dsn == "" {
		return func() {}
	}

	env := os.Getenv("SENTRY_ENVIRONMENT")
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "testgate@" + version,
		Environment:      env,
		ServerName:       runtime.GOOS + "-" + runtime.GOARCH,
		AttachStacktrace: true,
		SampleRate:       1.0,
		Debug:            env == "development",
		HTTPClient: &http.Client{
			Timeout: httpClientTimeout,
		},
		IgnoreErrors: []string{
			"context canceled",
			"context deadline exceeded",
			"signal: interrupt",
			"signal: terminated",
		},
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if hint != nil && hint.OriginalException != nil {
				msg := hint.OriginalException.Error()
				if strings.Contains(msg, "interrupt") || strings.Contains(msg, "context canceled") {
					return nil
				}
			}
			scrubEvent(event)
			return event
		},
	})
	if err != nil {
		return func() {}
	}

	return func() {
		sentry.Flush(flushTimeout)
	}
}

// CaptureError reports a processing error (a report-aggregator or audit
// failure unrelated to a module's findings) if telemetry is initialized.
// Safe to call even when Init was never called or found no DSN.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// RecoverAndReport recovers from a panic, reports it, flushes, then
// re-panics so the CLI still exits non-zero and prints the panic. Must be
// deferred before Init's cleanup function so Flush here runs ahead of the
// re-panic unwinding past it:
//
//	defer telemetry.RecoverAndReport()
//	cleanup := telemetry.Init(version)
//	defer cleanup()
func RecoverAndReport() {
	if r := recover(); r != nil {
		sentry.CurrentHub().RecoverWithContext(context.Background(), r)
		sentry.Flush(flushTimeout)
		panic(r)
	}
}

func scrubEvent(event *sentry.Event) {
	event.Message = scrubPII(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
		if event.Exception[i].Stacktrace == nil {
			continue
		}
		for j := range event.Exception[i].Stacktrace.Frames {
			frame := &event.Exception[i].Stacktrace.Frames[j]
			frame.AbsPath = scrubPII(frame.AbsPath)
			frame.Filename = scrubPII(frame.Filename)
		}
	}
	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = scrubPII(str)
		}
	}
}

func scrubPII(s string) string {
	return homePathPattern.ReplaceAllString(s, "${1}[user]")
}
