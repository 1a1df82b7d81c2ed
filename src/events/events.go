// Package events defines the observability collaborator the runtime emits
// structured events into. Sinks are injected through constructors; nothing in
// the module reaches for a process-wide logger. Emission is fire-and-forget:
// a missing or failing sink never affects execution.
package events

import (
	"log/slog"
	"time"
)

// Kind classifies an event.
type Kind string

const (
	ToolCallStarted   Kind = "tool_call_started"
	ToolCallSucceeded Kind = "tool_call_succeeded"
	ToolCallFailed    Kind = "tool_call_failed"
	AgentStarted      Kind = "agent_started"
	AgentEnded        Kind = "agent_ended"
	ModelCall         Kind = "model_call"
	TaskCompleted     Kind = "task_completed"
	TaskFailed        Kind = "task_failed"
)

// Event is one structured observation of the run.
type Event struct {
	Time      time.Time      `json:"time"`
	Kind      Kind           `json:"kind"`
	SessionID string         `json:"session_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Sink receives events. Implementations must not block for long and must
// never panic on malformed events.
type Sink interface {
	Emit(event Event)
}

// Emit sends an event through sink, stamping the time if unset. A nil sink
// is a no-op.
func Emit(sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	sink.Emit(event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// SlogSink writes events through a slog.Logger.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink wraps the given logger; a nil logger falls back to slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

func (s *SlogSink) Emit(event Event) {
	if s == nil || s.Logger == nil {
		return
	}
	attrs := []any{
		"kind", string(event.Kind),
		"session_id", event.SessionID,
	}
	if event.AgentID != "" {
		attrs = append(attrs, "agent_id", event.AgentID)
	}
	if event.Tool != "" {
		attrs = append(attrs, "tool", event.Tool, "call_id", event.CallID, "attempt", event.Attempt)
	}
	if event.Duration > 0 {
		attrs = append(attrs, "duration", event.Duration)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
		s.Logger.Warn("agent event", attrs...)
		return
	}
	s.Logger.Info("agent event", attrs...)
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(event Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(event)
		}
	}
}
