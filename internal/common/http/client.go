package http

import (
	"net/http"
	"time"
)

// DefaultUserAgent identifies the relay to providers
const DefaultUserAgent = "alarm-relay/1.0"

// ClientConfig configures the client shared by all adapters.
//
// Keep-alives are off unless asked for: every provider connection opened by
// an adapter run is closed when that run finishes, and none is carried over
// to the next alarm.
type ClientConfig struct {
	Timeout    time.Duration
	KeepAlives bool
	UserAgent  string
	Transport  http.RoundTripper
}

// DefaultClientConfig returns a 10s timeout, no keep-alives and the relay
// user agent
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   10 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

// ClientOption modifies a ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout bounds each provider call, including reading the response body
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithKeepAlives lets the client pool idle provider connections
func WithKeepAlives() ClientOption {
	return func(c *ClientConfig) {
		c.KeepAlives = true
	}
}

// WithUserAgent overrides the User-Agent header; "" leaves Go's default
func WithUserAgent(ua string) ClientOption {
	return func(c *ClientConfig) {
		c.UserAgent = ua
	}
}

// WithTransport replaces the network round tripper, mostly for tests
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates the client used by Transport
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := cfg.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DisableKeepAlives:   !cfg.KeepAlives,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{next: rt, agent: cfg.UserAgent}
	}

	return &http.Client{Timeout: cfg.Timeout, Transport: rt}
}

type userAgentTransport struct {
	next  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(r)
}
