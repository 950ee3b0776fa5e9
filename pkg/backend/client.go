package backend

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 60 * time.Second

// Client talks to the recognition service. It is safe for concurrent use.
type Client struct {
	config *clientConfig
	http   *httpClient
}

type clientConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}
	return &Client{
		config: cfg,
		http:   newHTTPClient(cfg),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.baseURL
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) error {
	return c.http.get(ctx, "/healthz", nil)
}
