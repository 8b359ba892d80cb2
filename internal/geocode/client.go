// Package geocode talks to a Pelias-compatible autocomplete API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultHost       = "https://api.geocode.earth"
	DefaultClientName = "geocomplete"

	autocompletePath = "/v1/autocomplete"
	maxResponseBytes = 4 << 20
)

// Searcher runs one autocomplete query.
type Searcher interface {
	Search(ctx context.Context, term string) (Envelope, error)
}

// Client queries the autocomplete endpoint. Its key and params are fixed at
// construction; build a new Client to change them.
type Client struct {
	apiKey     string
	params     Params
	query      url.Values
	host       string
	clientName string
	httpClient *http.Client
	limiter    *rate.Limiter

	issued atomic.Uint64

	mu       sync.Mutex
	returned uint64 // highest sequence number handed back to a caller
}

// Option customises a Client.
type Option func(*Client)

// WithHost overrides the API host (scheme and authority, optional base path).
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit replaces the outbound request limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithClientName sets the User-Agent sent with each request.
func WithClientName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.clientName = name
		}
	}
}

// NewClient validates apiKey and params and returns a ready client.
// Configuration problems are reported as *ConfigError.
func NewClient(apiKey string, params Params, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &ConfigError{Field: "api_key", Reason: "required"}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		apiKey:     apiKey,
		params:     params.Clone(),
		host:       DefaultHost,
		clientName: DefaultClientName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(c.host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ConfigError{Field: "host", Reason: fmt.Sprintf("%q is not an absolute URL", c.host)}
	}
	c.host = strings.TrimRight(c.host, "/")

	c.query = c.params.Values()
	c.query.Set("api_key", c.apiKey)
	return c, nil
}

// Params returns a copy of the client's query parameters.
func (c *Client) Params() Params { return c.params.Clone() }

// Host returns the API host in use.
func (c *Client) Host() string { return c.host }

// Search issues one autocomplete request for term.
//
// An empty term or a cancelled context yields a discarded envelope and no
// error. An expired deadline is a *NetworkError wrapping
// context.DeadlineExceeded. A response that arrives after a later request's response has been
// returned is also marked Discard.
func (c *Client) Search(ctx context.Context, term string) (Envelope, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Envelope{Discard: true}, nil
	}
	seq := c.issued.Add(1)

	if err := c.limiter.Wait(ctx); err != nil {
		if cancelled(ctx) {
			return Envelope{Discard: true}, nil
		}
		if ctx.Err() != nil {
			return Envelope{}, &NetworkError{Err: ctx.Err()}
		}
		return Envelope{}, &NetworkError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(term), nil)
	if err != nil {
		return Envelope{}, &NetworkError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.clientName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if cancelled(ctx) {
			return Envelope{Discard: true}, nil
		}
		return Envelope{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if cancelled(ctx) {
			return Envelope{Discard: true}, nil
		}
		return Envelope{}, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Envelope{}, &APIError{Status: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	features, err := decodeFeatures(body)
	if err != nil {
		return Envelope{}, &APIError{Status: resp.StatusCode, Message: err.Error()}
	}

	return Envelope{Discard: c.superseded(seq), Features: features}, nil
}

func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func (c *Client) endpoint(term string) string {
	q := make(url.Values, len(c.query)+1)
	for k, v := range c.query {
		q[k] = v
	}
	q.Set("text", term)
	return c.host + autocompletePath + "?" + q.Encode()
}

// superseded records seq as returned unless a newer request already was.
func (c *Client) superseded(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.returned {
		return true
	}
	c.returned = seq
	return false
}
