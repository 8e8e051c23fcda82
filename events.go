package statsync

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies an outbound manager event.
type EventType int

const (
	EventLocalUserAdded EventType = iota
	EventLocalUserRemoved
	EventStatUpdateComplete
	EventFlushFailed
)

func (t EventType) String() string {
	switch t {
	case EventLocalUserAdded:
		return "local_user_added"
	case EventLocalUserRemoved:
		return "local_user_removed"
	case EventStatUpdateComplete:
		return "stat_update_complete"
	case EventFlushFailed:
		return "flush_failed"
	default:
		return "unknown"
	}
}

// Event is one completed-work notification drained by DoWork. The event
// queue is the engine's only notification channel; it never calls back
// into host code directly.
type Event struct {
	ID            string
	Type          EventType
	UserID        string
	ServerVersion uint32
	Err           error
	Timestamp     time.Time
}

func newEvent(eventType EventType, userID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}
