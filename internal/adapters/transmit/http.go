// Package transmit delivers serialized snapshot documents to the remote
// ingestion endpoint.
package transmit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bodytrack/internal/domain/document"
	"github.com/okian/bodytrack/pkg/metrics"
)

// RequestIDHeader carries a fresh UUID on every delivery.
const RequestIDHeader = "X-Request-ID"

// Option applies a configuration option to the HTTP transmitter.
type Option func(*HTTP)

// WithTimeout bounds a single POST including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithClient replaces the underlying http.Client.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// HTTP posts documents to a fixed URL. Credentials, if any, are part of the URL.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP validates endpoint and returns a transmitter for it.
func NewHTTP(endpoint string, opts ...Option) (*HTTP, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, endpoint)
	}

	h := &HTTP{
		url:    endpoint,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Send posts one document. The response body is drained and discarded; a
// status of 400 or above is returned as an error wrapping ErrStatus.
func (h *HTTP) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Content-Type", document.ContentType)
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	metrics.RecordDeliveryStatus(strconv.Itoa(resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrStatus, resp.StatusCode)
	}
	return nil
}
