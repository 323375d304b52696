// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package client is the HTTP transport for the Roku External Control
// Protocol. Every request targets http://<ipv4>:8060/<endpoint> and is bounded
// by a per-call timeout.
//
// # Failure Reporting
//
// Failures are returned as *errors.StatusError so that callers only ever see
// an HTTP status:
//   - Get: 408 when the request timed out, otherwise the device's non-2xx
//     status, or 400 when there was no response at all
//   - Post: the device's non-2xx status, or 400 when there was no response
//     (a plain POST does not single out timeouts)
//   - WakingPost: a timed-out first attempt sends a Wake-on-LAN packet and
//     retries once as a Post; 418 when the packet could not be sent
//
// # Example Usage
//
//	c := client.New()
//	body, err := c.Get(ctx, "192.168.1.50", "query/device-info", 3*time.Second)
//	if errors.IsTimeout(err) {
//	    // treat as powered off
//	}
package client

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soothill/roku-ecp/pkg/errors"
	"github.com/soothill/roku-ecp/pkg/interfaces"
	"github.com/soothill/roku-ecp/pkg/logger"
	"github.com/soothill/roku-ecp/pkg/metrics"
	"github.com/soothill/roku-ecp/wol"
)

// DefaultPort is the TCP port ECP servers listen on
const DefaultPort = 8060

// MaxBodySize caps how much of a response body is read. Larger bodies are
// discarded like unreadable ones.
const MaxBodySize = 4 << 20

// Client issues ECP requests. The zero value is not usable; call New.
type Client struct {
	http  *http.Client
	waker interfaces.Waker
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithWaker replaces the Wake-on-LAN sender used by WakingPost
func WithWaker(w interfaces.Waker) Option {
	return func(c *Client) {
		c.waker = w
	}
}

// New creates a client that broadcasts magic packets on the local network
func New(opts ...Option) *Client {
	c := &Client{
		http:  &http.Client{},
		waker: wol.NewSender(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClient = New()

// Default returns the shared package-level client
func Default() *Client {
	return defaultClient
}

// URL builds the request URL for endpoint on host. A host without a port is
// given DefaultPort.
func URL(host, endpoint string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(DefaultPort))
	}
	return "http://" + host + "/" + strings.TrimPrefix(endpoint, "/")
}

// Get fetches endpoint and returns the response body ("" when there is none).
func (c *Client) Get(ctx context.Context, host, endpoint string, timeout time.Duration) (string, error) {
	body, err := c.do(ctx, http.MethodGet, host, endpoint, "", timeout)
	if err != nil {
		if isTimeout(err) {
			return "", errors.NewStatusError(http.StatusRequestTimeout)
		}
		return "", asStatus(err)
	}
	return body, nil
}

// Post posts body to endpoint and returns the response body.
func (c *Client) Post(ctx context.Context, host, endpoint, body string, timeout time.Duration) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, host, endpoint, body, timeout)
	if err != nil {
		return "", asStatus(err)
	}
	return resp, nil
}

// WakingPost posts to endpoint without a body. When that attempt times out
// the device is assumed to be powered down: a magic packet is sent to mac
// and, if it left this host, the POST is retried exactly once.
func (c *Client) WakingPost(ctx context.Context, host string, mac wol.MAC, endpoint string, timeout time.Duration) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, host, endpoint, "", timeout)
	if err == nil {
		return resp, nil
	}
	if !isTimeout(err) {
		return "", asStatus(err)
	}

	logger.Debug().
		Str("host", host).
		Str("endpoint", endpoint).
		Str("mac", mac.String()).
		Msg("POST timed out, sending Wake-on-LAN before retry")

	if wakeErr := c.waker.Wake(ctx, mac); wakeErr != nil {
		logger.Debug().Err(wakeErr).Str("host", host).Msg("Wake-on-LAN failed")
		return "", errors.NewStatusError(http.StatusTeapot)
	}
	return c.Post(ctx, host, endpoint, "", timeout)
}

// transportError is a request that produced no HTTP response
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// do performs one request. Non-2xx responses come back as *errors.StatusError;
// requests without a response come back as *transportError.
func (c *Client) do(ctx context.Context, method, host, endpoint, body string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, URL(host, endpoint), reader)
	if err != nil {
		metrics.ECPRequestsTotal.WithLabelValues(method, "error").Inc()
		return "", &transportError{err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ECPRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		label := "error"
		if isTimeout(err) {
			label = "timeout"
		}
		metrics.ECPRequestsTotal.WithLabelValues(method, label).Inc()
		logger.Debug().Err(err).
			Str("method", method).
			Str("host", host).
			Str("endpoint", endpoint).
			Msg("ECP request failed")
		return "", &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.ECPRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	// A body that cannot be read, or is too large, is treated as empty.
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	switch {
	case readErr != nil:
		logger.Debug().Err(readErr).Str("endpoint", endpoint).Msg("Discarding unreadable response body")
		data = nil
	case len(data) > MaxBodySize:
		logger.Debug().Str("endpoint", endpoint).Int("limit", MaxBodySize).Msg("Discarding oversized response body")
		data = nil
	}

	logger.Debug().
		Str("method", method).
		Str("host", host).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("ECP request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewStatusError(resp.StatusCode)
	}
	return string(data), nil
}

// isTimeout reports whether a request failed because its deadline passed
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// asStatus maps a request failure to the status carried back to callers
func asStatus(err error) error {
	var se *errors.StatusError
	if errors.As(err, &se) {
		return se
	}
	return errors.NewStatusError(http.StatusBadRequest)
}
