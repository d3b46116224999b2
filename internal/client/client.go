// Package client performs a single request/response exchange for the
// dispatcher. The dispatcher treats it as an opaque capability: it hands in
// an immutable spec and a context deadline and gets back a status plus body
// size, or a transport error.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/NodePath81/sirius/internal/config"
)

// Result is the observable outcome of one exchange. Bytes is the response
// body size after a full read.
type Result struct {
	Status int
	Bytes  int64
}

// Doer executes one attempt. Implementations must be safe for concurrent
// use by multiple dispatch workers.
type Doer interface {
	Do(ctx context.Context, spec config.RequestSpec) (Result, error)
}

type Options struct {
	// H2C speaks HTTP/2 over cleartext TCP (prior knowledge), for targets
	// behind h2c-only ingress.
	H2C bool
}

type HTTPClient struct {
	client *http.Client
}

func New(opts Options) *HTTPClient {
	var transport http.RoundTripper
	if opts.H2C {
		transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			// Redirects are reported as 3xx statuses, not followed, so the
			// [200,400) ok classification stays observable.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *HTTPClient) Do(ctx context.Context, spec config.RequestSpec) (Result, error) {
	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return Result{}, err
	}
	for _, hdr := range spec.Headers {
		req.Header.Set(hdr.Key, hdr.Value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	// Latency covers full response receipt, so drain the body and count it.
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: resp.StatusCode, Bytes: n}, nil
}

// IsTimeout reports whether err was caused by the per-attempt deadline
// rather than a plain transport failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
