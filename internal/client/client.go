// Package client is a Go client for the solodex entity API. Its list and
// filter calls build query strings the server parses identically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/pkg/logger"
)

const defaultTimeout = 15 * time.Second

// Client talks to one solodex server.
type Client struct {
	base  *url.URL
	http  *http.Client
	appID string
	log   logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithAppID routes every call through /api/apps/{appID}.
func WithAppID(appID string) Option {
	return func(c *Client) { c.appID = appID }
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
		log:  logger.NamedOrNop("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Entity returns the handler for one entity kind.
func (c *Client) Entity(kind entity.Kind) *EntityHandler {
	return &EntityHandler{c: c, kind: kind}
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (entity.Record, error) {
	var out entity.Record
	if err := c.do(ctx, http.MethodGet, c.apiPath("entities", string(entity.User), "me"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type loginResult struct {
	Success bool   `json:"success"`
	Role    string `json:"role"`
}

// Login exchanges the admin password for a role.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out loginResult
	body := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodPost, c.apiPath("auth", "login"), nil, body, &out); err != nil {
		return "", err
	}
	return out.Role, nil
}

func (c *Client) apiPath(parts ...string) string {
	segs := []string{"api"}
	if c.appID != "" {
		segs = append(segs, "apps", c.appID)
	}
	segs = append(segs, parts...)
	return "/" + strings.Join(segs, "/")
}

// do sends one request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	// path is unescaped; String() escapes it
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.appID != "" {
		req.Header.Set("X-App-Id", c.appID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, raw)
		c.log.Debug(ctx, "api call failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", resp.StatusCode),
			logger.String("message", apiErr.Message))
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
