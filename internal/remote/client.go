package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/dmg-installer/internal/version"
)

// ErrBadHTTPStatus is returned when the server answers with a non-2xx status.
var ErrBadHTTPStatus = errors.New("unexpected http status")

const (
	// artifactFileMode is the permission of downloaded files.
	artifactFileMode os.FileMode = 0o644
	// defaultHeadTimeout bounds the version query when no timeout is configured.
	defaultHeadTimeout = 30 * time.Second
)

// HTTPClient is the subset of *http.Client used here, replaceable in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout bounds header-only requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.headTimeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// Client issues requests against the distribution server.
type Client struct {
	httpClient  HTTPClient
	headTimeout time.Duration
	userAgent   string
}

// NewClient creates a Client with the default HTTP client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  http.DefaultClient,
		headTimeout: defaultHeadTimeout,
		userAgent:   "dmg-installer/" + version.Short(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LatestVersion sends a HEAD request to rawURL and returns the trimmed value
// of header. A missing header yields an empty string and no error.
func (c *Client) LatestVersion(ctx context.Context, rawURL, header string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.headTimeout)
	defer cancel()

	response, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	return strings.TrimSpace(response.Header.Get(header)), nil
}

// Download streams the body of rawURL into dst, replacing any existing file,
// and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, rawURL, dst string) (int64, error) {
	response, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	//nolint:gosec // The destination lives in a directory created by this run.
	output, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, artifactFileMode)
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}

	written, err := io.Copy(output, response.Body)
	if err != nil {
		_ = output.Close()

		return written, fmt.Errorf("write artifact: %w", err)
	}

	if err = output.Close(); err != nil {
		return written, fmt.Errorf("close artifact: %w", err)
	}

	return written, nil
}

// do builds and sends a request, rejecting non-2xx answers.
func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s %s, %s: %w", method, rawURL, response.Status, ErrBadHTTPStatus)
	}

	return response, nil
}
