package statsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransportResponse carries the status code and body bytes the sync
// client needs; transport internals (auth, pooling) stay behind the
// interface.
type TransportResponse struct {
	Status int
	Body   []byte
}

// Transport performs one authenticated request against the stats
// service.
type Transport interface {
	Send(ctx context.Context, method, path string, body []byte) (*TransportResponse, error)
}

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client

	// Authorize, when set, decorates each request, typically with an
	// auth header.
	Authorize func(*http.Request) error
}

// NewHTTPTransport creates a transport for a service base URL.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Send issues the request and reads the full response body. Non-2xx
// statuses are returned in the response, not as errors; classification
// is the caller's concern.
func (t *HTTPTransport) Send(ctx context.Context, method, path string, body []byte) (*TransportResponse, error) {
	if t.BaseURL == "" {
		return nil, fmt.Errorf("http transport requires BaseURL")
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.Authorize != nil {
		if err := t.Authorize(req); err != nil {
			return nil, err
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &TransportResponse{Status: resp.StatusCode, Body: data}, nil
}
