// SPDX-License-Identifier: MPL-2.0

// Package remote lists and downloads artifacts published in a WebDAV
// collection.
package remote

import (
	"cmp"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"
)

// Client configuration defaults.
const (
	DefaultMaxIdleConns    = 10
	DefaultIdleConnTimeout = 90 * time.Second
	DefaultRequestTimeout  = 5 * time.Minute
)

// StatusMultiStatus is the WebDAV 207 status returned by PROPFIND.
const StatusMultiStatus = 207

const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:resourcetype/>
    <D:displayname/>
  </D:prop>
</D:propfind>
`

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type (
	// Child is one member of a listed collection.
	Child struct {
		// URI is absolute, resolved against the listed URL.
		URI          string
		DisplayName  string
		IsCollection bool
	}

	// StatusError reports a response with an unexpected status code.
	StatusError struct {
		Method string
		URL    string
		Code   int
	}

	// Client talks to a WebDAV server.
	Client struct {
		client *http.Client
	}

	// Option configures a Client.
	Option func(*Client)

	multistatus struct {
		XMLName   xml.Name   `xml:"DAV: multistatus"`
		Responses []response `xml:"DAV: response"`
	}

	response struct {
		Href     string     `xml:"DAV: href"`
		Propstat []propstat `xml:"DAV: propstat"`
	}

	propstat struct {
		Prop   prop   `xml:"DAV: prop"`
		Status string `xml:"DAV: status"`
	}

	prop struct {
		DisplayName  string `xml:"DAV: displayname"`
		ResourceType struct {
			Collection *struct{} `xml:"DAV: collection"`
		} `xml:"DAV: resourcetype"`
	}
)

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Code)
}

// Unwrap returns ErrUnexpectedStatus for errors.Is compatibility.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the per-request timeout. Zero or negative values fall
// back to DefaultRequestTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		} else {
			c.client.Timeout = DefaultRequestTimeout
		}
	}
}

// NewClient creates a Client. Redirects are not followed.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    DefaultMaxIdleConns,
				IdleConnTimeout: DefaultIdleConnTimeout,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the members of the collection at rawURL, files first and then
// by display name. The collection itself is not included.
func (c *Client) List(ctx context.Context, rawURL string) ([]Child, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid collection URL %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", rawURL, strings.NewReader(propfindBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != StatusMultiStatus {
		return nil, &StatusError{Method: "PROPFIND", URL: rawURL, Code: resp.StatusCode}
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("failed to parse multistatus from %s: %w", rawURL, err)
	}

	children := make([]Child, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		child, err := toChild(base, r)
		if err != nil {
			return nil, err
		}
		if samePath(base.Path, child.URI) {
			continue
		}
		children = append(children, child)
	}

	slices.SortStableFunc(children, func(a, b Child) int {
		if a.IsCollection != b.IsCollection {
			if !a.IsCollection {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.DisplayName, b.DisplayName)
	})
	return children, nil
}

// Download writes the body found at rawURL to w.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Method: http.MethodGet, URL: rawURL, Code: resp.StatusCode}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return nil
}

func toChild(base *url.URL, r response) (Child, error) {
	href := strings.TrimSpace(r.Href)
	if href == "" {
		return Child{}, errors.New("multistatus response without href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return Child{}, fmt.Errorf("invalid href %q: %w", href, err)
	}
	child := Child{URI: base.ResolveReference(ref).String()}

	for _, ps := range r.Propstat {
		if !statusOK(ps.Status) {
			continue
		}
		if ps.Prop.DisplayName != "" {
			child.DisplayName = ps.Prop.DisplayName
		}
		if ps.Prop.ResourceType.Collection != nil {
			child.IsCollection = true
		}
	}
	if child.DisplayName == "" {
		child.DisplayName = path.Base(strings.TrimSuffix(ref.Path, "/"))
	}
	return child, nil
}

// statusOK reports whether a propstat status line carries a 2xx code. An
// absent status is treated as success.
func statusOK(status string) bool {
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return true
	}
	return strings.HasPrefix(fields[1], "2")
}

func samePath(basePath, childURI string) bool {
	u, err := url.Parse(childURI)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(basePath, "/")
}
