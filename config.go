package statsync

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultRetryStatuses lists the HTTP statuses treated as transient:
// flushes failing with these are persisted offline and retried. The right
// list is deployment-specific, so it is configuration, not logic.
var DefaultRetryStatuses = []int{429, 500, 502, 503, 504}

// Config holds global configuration for a sync manager.
type Config struct {
	// Transport reaches the remote stats service. Required unless
	// NewSyncClient is set.
	Transport Transport

	// ServiceConfigID scopes the service path for all users.
	ServiceConfigID string

	// Store receives serialized documents while the service is
	// unreachable. Defaults to an in-memory store.
	Store OfflineStore

	// FlushInterval bounds how long a dirty document waits for a
	// periodic flush. Zero flushes on every DoWork cycle.
	FlushInterval time.Duration

	// RetryStatuses overrides DefaultRetryStatuses.
	RetryStatuses []int

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// NewSyncClient overrides sync client construction, mainly for
	// tests and alternative transports.
	NewSyncClient func(userID string) SyncClient
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		FlushInterval: 30 * time.Second,
		RetryStatuses: DefaultRetryStatuses,
	}
}

func (c *Config) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Config) retryStatuses() []int {
	if c == nil || c.RetryStatuses == nil {
		return DefaultRetryStatuses
	}
	return c.RetryStatuses
}

func (c *Config) syncClient(userID string) SyncClient {
	if c != nil && c.NewSyncClient != nil {
		return c.NewSyncClient(userID)
	}
	return NewHTTPSyncClient(c.Transport, userID, c.ServiceConfigID)
}

// shouldWriteOffline classifies a sync failure: transport-level failures
// and the configured status list are transient and worth retrying,
// everything else is a permanent rejection.
func (c *Config) shouldWriteOffline(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		if syncErr.Network {
			return true
		}
		for _, status := range c.retryStatuses() {
			if syncErr.Status == status {
				return true
			}
		}
		return false
	}
	// Anything that never reached the service counts as a network
	// failure.
	return true
}
