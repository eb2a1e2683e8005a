// Package media downloads inbound chat attachments and stores them as product images.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxDownload bounds a single attachment download
const maxDownload = 16 << 20

// Item is an attachment reference delivered by the chat provider
type Item struct {
	URL         string
	ContentType string
}

// Fetcher downloads attachment bytes
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads with basic auth and retries transient failures
type HTTPFetcher struct {
	client   *http.Client
	user     string
	password string
	maxTries uint
	interval time.Duration
	limit    int64
}

// NewHTTPFetcher returns a fetcher authenticating as user:password
func NewHTTPFetcher(client *http.Client, user, password string) *HTTPFetcher {
	return &HTTPFetcher{
		client:   client,
		user:     user,
		password: password,
		maxTries: 3,
		interval: 200 * time.Millisecond,
		limit:    maxDownload,
	}
}

// Fetch returns the body of url. 4xx responses and oversized bodies are not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.interval
	return backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if f.user != "" {
			req.SetBasicAuth(f.user, f.password)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(fmt.Errorf("download %s: status %d", url, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, f.limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > f.limit {
			return nil, backoff.Permanent(fmt.Errorf("attachment exceeds %d bytes", f.limit))
		}
		return data, nil
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(f.maxTries))
}
