// Package fetch downloads linked course documents with the same guards the
// library applies to every outbound request: http(s) only, no loopback or
// cloud metadata hosts, bounded redirects, and a size cap.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults used when a Client is built without options.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 10 << 20 // 10 MB
	maxRedirects    = 5
)

// ErrTooLarge is returned when a document exceeds the size cap.
var ErrTooLarge = errors.New("fetch: document too large")

// Document is a downloaded body and its media type.
type Document struct {
	Body        []byte
	ContentType string
}

// Client fetches linked documents.
type Client struct {
	http          *http.Client
	maxBytes      int64
	allowLoopback bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds a whole request including redirects.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxBytes caps the body size.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithLoopback permits loopback hosts. Intended for tests against httptest servers.
func WithLoopback() Option {
	return func(c *Client) { c.allowLoopback = true }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{maxBytes: DefaultMaxBytes}
	c.http = &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return c.checkHost(req.URL.Hostname())
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch downloads rawURL. data: URIs are decoded in place.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Document, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURI(rawURL, c.maxBytes)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Document{}, fmt.Errorf("fetch: invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Document{}, fmt.Errorf("fetch: unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := c.checkHost(parsed.Hostname()); err != nil {
		return Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.1")

	resp, err := c.http.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch: download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetch: download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("fetch: read body failed: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return Document{}, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, c.maxBytes)
	}
	return Document{Body: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// checkHost rejects loopback and cloud metadata addresses.
func (c *Client) checkHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("fetch: blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() && !c.allowLoopback {
		return fmt.Errorf("fetch: blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("fetch: blocked host: cloud metadata address %s", host)
	}
	return nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string, maxBytes int64) (Document, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return Document{}, fmt.Errorf("fetch: invalid data URI: missing comma separator")
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		var err error
		data, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(encoded)
			if err != nil {
				return Document{}, fmt.Errorf("fetch: invalid base64 data: %w", err)
			}
		}
		meta = strings.TrimSuffix(meta, ";base64")
	} else {
		text, err := url.PathUnescape(encoded)
		if err != nil {
			return Document{}, fmt.Errorf("fetch: invalid data URI: %w", err)
		}
		data = []byte(text)
	}
	if int64(len(data)) > maxBytes {
		return Document{}, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	if meta == "" {
		meta = "text/plain;charset=US-ASCII"
	}
	return Document{Body: data, ContentType: meta}, nil
}
