package trace

import (
	"context"
	"sync"

	"github.com/hdlforge/go-hdlforge/src/events"
)

// MemoryStore keeps traces in process memory. Default backend.
type MemoryStore struct {
	mu     sync.RWMutex
	events []events.Event
	tasks  []TaskRecord
}

// NewMemoryStore returns an empty in-memory trace store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) AppendEvent(_ context.Context, event events.Event) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events = append(ms.events, event)
	return nil
}

func (ms *MemoryStore) SaveTask(_ context.Context, task TaskRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tasks = append(ms.tasks, task)
	return nil
}

// History returns the most recent events for a session, oldest first.
// An empty sessionID matches everything.
func (ms *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]events.Event, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []events.Event
	for _, ev := range ms.events {
		if sessionID == "" || ev.SessionID == sessionID {
			out = append(out, ev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (ms *MemoryStore) Tasks(_ context.Context, sessionID string, limit int) ([]TaskRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []TaskRecord
	for _, task := range ms.tasks {
		if sessionID == "" || task.SessionID == sessionID {
			out = append(out, task)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (ms *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
