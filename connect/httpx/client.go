// Package httpx provides an HTTP client built on loom endpoints.
//
// In tests, construct from a resolved environment endpoint:
//
//	client := httpx.New(env.Endpoint("api"))
//	resp, err := client.Get("/health")
//
// In service code, construct from parsed wiring:
//
//	w, _ := connect.ParseWiring(ctx)
//	client := httpx.New(w.Egress("api"))
package httpx

import (
	"io"
	"net/http"
	"net/url"

	"github.com/matgreaves/loom/connect"
	"github.com/matgreaves/loom/loomerr"
)

// Client is an HTTP client that prepends a base URL to all request paths.
type Client struct {
	// BaseURL is prepended to all request paths (e.g. "http://127.0.0.1:8080").
	// Must not have a trailing slash.
	BaseURL string

	// HTTP is the underlying http.Client. If nil, http.DefaultClient is used.
	HTTP *http.Client
}

// New creates an HTTP client from a resolved endpoint.
func New(ep connect.Endpoint) *Client {
	return &Client{BaseURL: "http://" + ep.Addr()}
}

// NewClient creates an HTTP client for the given base URL string.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Get sends a GET request to BaseURL + path.
func (c *Client) Get(path string) (*http.Response, error) {
	return c.httpClient().Get(c.BaseURL + path)
}

// Head sends a HEAD request to BaseURL + path.
func (c *Client) Head(path string) (*http.Response, error) {
	return c.httpClient().Head(c.BaseURL + path)
}

// Post sends a POST request to BaseURL + path.
func (c *Client) Post(path, contentType string, body io.Reader) (*http.Response, error) {
	return c.httpClient().Post(c.BaseURL+path, contentType, body)
}

// Do sends an HTTP request. If the request URL has no host (i.e. is a
// relative path like "/orders/1"), it is resolved against BaseURL.
// Absolute URLs are sent as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "" {
		base, err := url.Parse(c.BaseURL)
		if err != nil {
			return nil, err
		}
		req.URL = base.ResolveReference(req.URL)
	}
	return c.httpClient().Do(req)
}

// GetChecked is Get followed by CheckStatus: it sends a GET request and
// turns a non-2xx response into a loomerr error instead of handing the
// caller a response they must remember to status-check themselves.
func (c *Client) GetChecked(path string) (*http.Response, error) {
	resp, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	return CheckStatus(resp)
}

// CheckStatus passes resp through unchanged on a 2xx status. Otherwise it
// drains and closes resp.Body and returns a loomerr error whose Kind is
// recovered from the status via loomerr.KindFromStatus — the inverse of
// the mapping httpcore applies when one of this repo's own routers turns
// a handler error back into a status code, so a handler that calls out to
// another loom-style service over httpx can propagate that service's
// failure through the same canonical error taxonomy as a local one.
func CheckStatus(resp *http.Response) (*http.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return nil, loomerr.New(loomerr.KindFromStatus(resp.StatusCode),
		"%s %s: %d %s: %s", resp.Request.Method, resp.Request.URL, resp.StatusCode, resp.Status, body)
}
