// Package transport issues the engine's HTTP requests and parses the
// response directives the protocol honors.
//
// The transport is deliberately thin: cancellation and timeout arrive
// through the context, bodies are decoded charset-aware, and everything
// lifecycle-related (events, swap decisions, history) stays with the
// engine's single-writer loop.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/gohx/gohx/internal/request"
)

// ErrTimeout marks a request that exceeded the configured timeout. The
// engine treats it as cancelled: no swap occurs.
var ErrTimeout = errors.New("request timed out")

// Response is a completed exchange, body fully read and decoded.
type Response struct {
	Status     int
	Header     http.Header
	Body       string
	Directives Directives
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport sends request descriptors over HTTP.
type Transport struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithClient substitutes the underlying HTTP client (tests).
func WithClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.timeout = d }
}

// New creates a transport with the default client and no timeout.
func New(opts ...Option) *Transport {
	t := &Transport{client: http.DefaultClient}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send issues the request and reads the full response.
//
// The returned error is ErrTimeout-wrapped on deadline expiry,
// context.Canceled on cancellation, and a plain send error otherwise.
// A non-2xx status is NOT an error here; the engine decides whether to
// swap error fragments.
func (t *Transport) Send(ctx context.Context, d *request.Descriptor) (*Response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	body, contentType, err := EncodeBody(d)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifySendError(ctx, err)
	}
	defer resp.Body.Close()

	// decode the body honoring the declared charset
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode response charset: %w", err)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifySendError(ctx, err)
	}

	return &Response{
		Status:     resp.StatusCode,
		Header:     resp.Header,
		Body:       string(raw),
		Directives: ParseDirectives(resp.Header),
	}, nil
}

func classifySendError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return context.Canceled
	default:
		return fmt.Errorf("send: %w", err)
	}
}
