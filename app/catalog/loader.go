package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Loader fetches the directory document.
type Loader struct {
	httpClient *http.Client
	url        string
	userAgent  string
	timeout    time.Duration
}

func NewLoader(httpClient *http.Client, url, userAgent string, timeout time.Duration) *Loader {
	return &Loader{
		httpClient: httpClient,
		url:        url,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (l *Loader) Fetch(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
