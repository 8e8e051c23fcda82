package statsync

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FlushInterval != 30*time.Second {
		t.Fatalf("unexpected flush interval: %v", cfg.FlushInterval)
	}
	if !reflect.DeepEqual(cfg.RetryStatuses, DefaultRetryStatuses) {
		t.Fatalf("unexpected retry statuses: %v", cfg.RetryStatuses)
	}
}

func TestConfig_ShouldWriteOffline(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network failure", &SyncError{Network: true}, true},
		{"throttled", &SyncError{Status: 429}, true},
		{"internal error", &SyncError{Status: 500}, true},
		{"bad gateway", &SyncError{Status: 502}, true},
		{"unavailable", &SyncError{Status: 503}, true},
		{"gateway timeout", &SyncError{Status: 504}, true},
		{"bad request", &SyncError{Status: 400}, false},
		{"unauthorized", &SyncError{Status: 401}, false},
		{"not found", &SyncError{Status: 404}, false},
		{"wrapped sync error", errors.Join(errors.New("push"), &SyncError{Status: 503}), true},
		{"plain error", errors.New("no transport"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.shouldWriteOffline(tt.err); got != tt.want {
				t.Fatalf("expected %v for %v", tt.want, tt.err)
			}
		})
	}
}

func TestConfig_CustomRetryStatuses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryStatuses = []int{418}

	if !cfg.shouldWriteOffline(&SyncError{Status: 418}) {
		t.Fatalf("expected configured status to be transient")
	}
	if cfg.shouldWriteOffline(&SyncError{Status: 503}) {
		t.Fatalf("expected unlisted status to be permanent")
	}
}
