// Package upload implements the optional report-upload side effect: one
// POST of the pretty JSON report, wrapped in the shared exponential-backoff
// retry helper, expecting a JSON response carrying the report's published
// URL.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/detentsh/testgate/internal/retry"
)

// HTTPUploader posts the pretty JSON report to a fixed endpoint and
// extracts the published URL from a JSON response body's "url" field.
// A non-2xx response or a response without a usable URL is an error; the
// caller (the aggregator) treats any error as "unavailable", never fatal.
type HTTPUploader struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPUploader returns an HTTPUploader with a bounded default client.
func NewHTTPUploader(endpoint string) *HTTPUploader {
	return &HTTPUploader{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadPrettyJSON implements aggregator.Uploader.
func (u *HTTPUploader) UploadPrettyJSON(prettyJSON string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var url string
	err := retry.Do(ctx, func(ctx context.Context) error {
		got, err := u.postOnce(ctx, prettyJSON)
		if err != nil {
			return err
		}
		url = got
		return nil
	},
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithMaxDelay(5*time.Second),
	)
	if err != nil {
		return "", err
	}
	return url, nil
}

func (u *HTTPUploader) postOnce(ctx context.Context, prettyJSON string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, bytes.NewBufferString(prettyJSON))
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading report: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload endpoint returned status %d", resp.StatusCode)
	}

	url := gjson.GetBytes(body, "url").String()
	if url == "" {
		return "", fmt.Errorf("upload response had no url field")
	}
	return url, nil
}
