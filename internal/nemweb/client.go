// Package nemweb talks to the NEMweb report portal: it lists the archives
// published in a report directory and downloads one of them into a table.
package nemweb

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/nemfeed/internal/table"
)

// Config holds the upstream settings a Client works with.
type Config struct {
	ArchiveExtension string
	ContentTypes     []string
	Timeout          time.Duration
	MaxArchiveBytes  int64
	UserAgent        string
	Layout           table.Layout
}

const (
	defaultExtension   = ".zip"
	defaultContentType = "application/x-zip-compressed"
	defaultTimeout     = 30 * time.Second
	defaultMaxBytes    = 64 << 20
)

// Client fetches listings and archives. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client for cfg. Zero fields fall back to NEMweb defaults.
func New(cfg Config) *Client {
	if cfg.ArchiveExtension == "" {
		cfg.ArchiveExtension = defaultExtension
	}
	if len(cfg.ContentTypes) == 0 {
		cfg.ContentTypes = []string{defaultContentType}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxArchiveBytes <= 0 {
		cfg.MaxArchiveBytes = defaultMaxBytes
	}
	if cfg.Layout == "" {
		cfg.Layout = table.LayoutAuto
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// get issues a GET and returns the response only for a 2xx status.
// The caller closes the body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, transportError(url, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
