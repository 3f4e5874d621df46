package restpipe

import (
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Client is the orchestration layer for one backend. It holds the
// immutable Settings, the shared HTTP transport, and the cross-cutting
// collaborators (logger, connectivity checker). A Client is safe for
// concurrent use; all per-call state lives on the Request descriptor
// and the Response envelope.
type Client struct {
	settings Settings
	http     *http.Client
	checker  ConnectivityChecker
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithConnectivityChecker replaces the default dial-based probe.
func WithConnectivityChecker(checker ConnectivityChecker) Option {
	return func(c *Client) { c.checker = checker }
}

// New creates a Client for the given backend settings.
func New(settings Settings, opts ...Option) (*Client, error) {
	if settings.BaseURL == "" {
		return nil, &InvalidRequestError{PipelineError: PipelineError{Message: "settings require a base URL"}}
	}
	c := &Client{
		settings: settings.withDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = newHTTPClient()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.checker == nil {
		c.checker = NewDialChecker(c.settings.BaseURL)
	}
	return c, nil
}

// Settings returns a copy of the client settings.
func (c *Client) Settings() Settings { return c.settings }

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Service creates a logical endpoint grouping under this client.
func (c *Client) Service(name string, opts ...ServiceOption) *Service {
	s := &Service{client: c, name: name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newHTTPClient creates an HTTP client with pooled connections and
// defensive connect/header timeouts. The overall request deadline is
// managed per call via context, so no client-level timeout is set.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport}
}
