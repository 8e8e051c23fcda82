package statsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// SyncError classifies a failed exchange with the stats service. Network
// is set when the transport itself failed before a status was received.
type SyncError struct {
	Status  int
	Network bool
	Err     error
}

func (e *SyncError) Error() string {
	if e.Network {
		return fmt.Sprintf("stats service unreachable: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("stats service returned %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("stats service returned %d", e.Status)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// SyncClient is the RPC boundary to the remote stats service for one
// user's document.
type SyncClient interface {
	// PushDelta transmits a serialized delta and returns the
	// acknowledgment carrying the new server version.
	PushDelta(ctx context.Context, delta []byte) (Ack, error)

	// PullSnapshot fetches the full authoritative document, used on user
	// sign-in.
	PullSnapshot(ctx context.Context) (*Snapshot, error)
}

// HTTPSyncClient maps document deltas and snapshots onto the service's
// HTTP surface.
type HTTPSyncClient struct {
	Transport       Transport
	UserID          string
	ServiceConfigID string
}

// NewHTTPSyncClient creates a sync client for one user.
func NewHTTPSyncClient(transport Transport, userID, serviceConfigID string) *HTTPSyncClient {
	return &HTTPSyncClient{
		Transport:       transport,
		UserID:          userID,
		ServiceConfigID: serviceConfigID,
	}
}

// PushDelta transmits the delta and parses the ack.
func (c *HTTPSyncClient) PushDelta(ctx context.Context, delta []byte) (Ack, error) {
	body, err := c.send(ctx, http.MethodPost, c.documentPath(), delta)
	if err != nil {
		return Ack{}, err
	}

	var ack Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return Ack{}, &SyncError{Status: http.StatusOK, Err: fmt.Errorf("decode ack: %w", err)}
	}
	return ack, nil
}

// PullSnapshot fetches and parses the authoritative document.
func (c *HTTPSyncClient) PullSnapshot(ctx context.Context) (*Snapshot, error) {
	body, err := c.send(ctx, http.MethodGet, c.documentPath(), nil)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &SyncError{Status: http.StatusOK, Err: fmt.Errorf("decode snapshot: %w", err)}
	}
	return &snap, nil
}

func (c *HTTPSyncClient) send(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.Transport == nil {
		return nil, fmt.Errorf("sync client requires Transport")
	}

	resp, err := c.Transport.Send(ctx, method, path, body)
	if err != nil {
		return nil, &SyncError{Network: true, Err: err}
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, &SyncError{Status: resp.Status}
	}
	return resp.Body, nil
}

// documentPath formats the per-user document resource path.
func (c *HTTPSyncClient) documentPath() string {
	return fmt.Sprintf(
		"/stats/users/%s/scids/%s",
		url.PathEscape(c.UserID),
		url.PathEscape(c.ServiceConfigID),
	)
}
