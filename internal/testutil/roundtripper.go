package testutil

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

// CountingRoundTripper wraps a RoundTripper and counts requests and
// response body closes. Every response body it hands out must be closed
// exactly once for Balanced to hold.
type CountingRoundTripper struct {
	Next http.RoundTripper

	requests int64
	closes   int64

	mu     sync.Mutex
	bodies []*countingBody
}

// NewCountingRoundTripper wraps http.DefaultTransport
func NewCountingRoundTripper() *CountingRoundTripper {
	return &CountingRoundTripper{Next: http.DefaultTransport}
}

func (c *CountingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt64(&c.requests, 1)
	resp, err := c.Next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body := &countingBody{ReadCloser: resp.Body, parent: c}
	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()
	resp.Body = body
	return resp, nil
}

// Requests returns the number of round trips attempted
func (c *CountingRoundTripper) Requests() int {
	return int(atomic.LoadInt64(&c.requests))
}

// Closes returns the number of body Close calls observed
func (c *CountingRoundTripper) Closes() int {
	return int(atomic.LoadInt64(&c.closes))
}

// Balanced reports whether every response body was closed exactly once
func (c *CountingRoundTripper) Balanced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.bodies {
		if atomic.LoadInt64(&b.closed) != 1 {
			return false
		}
	}
	return true
}

type countingBody struct {
	io.ReadCloser
	parent *CountingRoundTripper
	closed int64
}

func (b *countingBody) Close() error {
	atomic.AddInt64(&b.closed, 1)
	atomic.AddInt64(&b.parent.closes, 1)
	return b.ReadCloser.Close()
}
