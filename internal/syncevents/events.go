// Package syncevents publishes per-device sync outcomes for downstream
// consumers. Publishing is best-effort: callers log and ignore errors.
package syncevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeDeviceSynced     = "device_synced"
	TypeDeviceSyncFailed = "device_sync_failed"
)

// Event is one device attempt within a sync run.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	DeviceID   string    `json:"device_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Message    string    `json:"message,omitempty"`
}

// NewEvent builds an event for a device attempt with a fresh ID.
func NewEvent(runID, deviceID, ipAddress string, at time.Time, message string, failed bool) Event {
	typ := TypeDeviceSynced
	if failed {
		typ = TypeDeviceSyncFailed
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		RunID:      runID,
		DeviceID:   deviceID,
		IPAddress:  ipAddress,
		OccurredAt: at.UTC(),
		Message:    message,
	}
}

// Producer emits sync events.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly.
	Emit(ctx context.Context, event Event) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
func (Nop) Close() error                      { return nil }
