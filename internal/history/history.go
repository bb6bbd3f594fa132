package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventLaunch EventType = "launch"
	EventExit   EventType = "exit"
)

// Event records one observation of a supervised bot's lifecycle.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Bot        string    `json:"bot"`
	PID        int       `json:"pid"`
	ExitCode   int       `json:"exit_code"` // meaningful for EventExit only
	ExitErr    string    `json:"exit_err,omitempty"`
}

// Sink is a destination for lifecycle events. Implementations must be safe
// for concurrent use. Sink failures are warnings to the supervisor, never
// reasons to stop the restart loop.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
