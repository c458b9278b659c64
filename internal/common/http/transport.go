package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"alarm-relay/internal/circuitbreaker"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/logging"
)

// MaxResponseBody caps how much of a provider response is read
const MaxResponseBody = 1 << 20

// BasicAuth holds HTTP basic credentials
type BasicAuth struct {
	Username string
	Password string
}

// Request describes one outbound provider call. At most one of Form, JSON
// or Body is used as the request body, in that order.
type Request struct {
	Method    string
	URL       string
	Query     url.Values
	Headers   map[string]string
	Form      url.Values
	JSON      interface{}
	Body      []byte
	BasicAuth *BasicAuth
}

// DeliveryResult is the provider's answer to a request
type DeliveryResult struct {
	Succeeded  bool
	StatusCode int
	Reason     string
	Body       []byte
}

// Transport sends provider requests. Each Do call opens and closes its own
// response; nothing is retried.
type Transport struct {
	client  *http.Client
	breaker *circuitbreaker.Breaker
	logger  logging.Logger
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithBreaker guards the transport with a circuit breaker using the default
// breaker configuration
func WithBreaker(name string) TransportOption {
	return func(t *Transport) {
		t.breaker = circuitbreaker.New(name, circuitbreaker.DefaultConfig(), t.logger)
	}
}

// WithCircuitBreaker guards the transport with an existing breaker
func WithCircuitBreaker(b *circuitbreaker.Breaker) TransportOption {
	return func(t *Transport) {
		t.breaker = b
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger logging.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates a transport on top of client; a nil client gets
// NewHTTPClient defaults.
func NewTransport(client *http.Client, opts ...TransportOption) *Transport {
	if client == nil {
		client = NewHTTPClient()
	}
	t := &Transport{
		client: client,
		logger: logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do executes req. A non-200 answer is not an error: it is reported through
// DeliveryResult.Succeeded. Errors are connection, timeout or internal
// AppErrors.
func (t *Transport) Do(ctx context.Context, req *Request) (*DeliveryResult, error) {
	if t.breaker == nil {
		return t.do(ctx, req)
	}

	var result *DeliveryResult
	err := t.breaker.Execute(func() error {
		var err error
		result, err = t.do(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Transport) do(ctx context.Context, req *Request) (*DeliveryResult, error) {
	httpReq, err := buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("Sending provider request",
		logging.String("method", httpReq.Method),
		logging.String("host", httpReq.URL.Host),
		logging.String("path", httpReq.URL.Path),
	)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	if err != nil {
		return nil, classify(ctx, err)
	}

	return &DeliveryResult{
		Succeeded:  resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Body:       body,
	}, nil
}

func buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if req == nil {
		return nil, errors.InternalError("nil request", nil)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, errors.InternalError("invalid request url", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.InternalError("request url needs scheme and host: "+req.URL, nil)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, errors.InternalError("failed to encode json body", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, errors.InternalError("failed to build request", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.BasicAuth != nil {
		httpReq.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)
	}
	return httpReq, nil
}

func classify(ctx context.Context, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.TimeoutError("provider request")
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TimeoutError("provider request")
	}
	return errors.ConnectionError("provider unreachable", err)
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
