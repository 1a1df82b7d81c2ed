// Package trace persists run traces: the structured events the runtime emits
// and the task entries the coordinator collects. Backends mirror the common
// deployment targets; the in-memory store is the default and the only one
// tests depend on.
package trace

import (
	"context"
	"time"

	"github.com/hdlforge/go-hdlforge/src/events"
)

// TaskRecord is one completed (or failed) dispatched task.
type TaskRecord struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id"`
	AgentID     string        `json:"agent_id"`
	Description string        `json:"description"`
	Status      string        `json:"status"` // "completed" or "failed"
	Output      string        `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`
	Artifacts   []string      `json:"artifacts,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Store is the contract for trace backends.
type Store interface {
	AppendEvent(ctx context.Context, event events.Event) error
	SaveTask(ctx context.Context, task TaskRecord) error
	History(ctx context.Context, sessionID string, limit int) ([]events.Event, error)
	Tasks(ctx context.Context, sessionID string, limit int) ([]TaskRecord, error)
	Close(ctx context.Context) error
}

// Sink adapts a Store to the events.Sink interface. Persistence failures are
// swallowed: tracing must never break execution.
type Sink struct {
	Store Store
}

// NewSink wraps store as a fire-and-forget event sink.
func NewSink(store Store) *Sink {
	return &Sink{Store: store}
}

func (s *Sink) Emit(event events.Event) {
	if s == nil || s.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Store.AppendEvent(ctx, event)
}
