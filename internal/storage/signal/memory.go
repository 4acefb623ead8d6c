package signal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/newthinker/pulse/internal/core"
)

// MemoryStore is a bounded in-memory event store. The oldest events are
// dropped once maxSize is reached.
type MemoryStore struct {
	events  []core.SignalEvent
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &MemoryStore{
		events:  make([]core.SignalEvent, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds an event to the store.
func (m *MemoryStore) Save(ctx context.Context, event core.SignalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	m.events = append(m.events, event)

	if len(m.events) > m.maxSize {
		m.events = m.events[len(m.events)-m.maxSize:]
	}
	return nil
}

// GetByID retrieves an event by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.SignalEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.events {
		if m.events[i].ID == id {
			e := m.events[i]
			return &e, nil
		}
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("event %s", id))
}

// List returns events matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.SignalEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.SignalEvent{}
	for i := len(m.events) - 1; i >= 0; i-- {
		if matches(m.events[i], filter) {
			result = append(result, m.events[i])
		}
	}

	if filter.Offset >= len(result) {
		return []core.SignalEvent{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the count of matching events.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, e := range m.events {
		if matches(e, filter) {
			count++
		}
	}
	return count, nil
}

func matches(e core.SignalEvent, filter ListFilter) bool {
	if filter.Subject != "" && !strings.EqualFold(e.Subject, filter.Subject) {
		return false
	}
	if filter.Kind != "" && e.Kind != filter.Kind {
		return false
	}
	if filter.Source != "" && e.Source != filter.Source {
		return false
	}
	if !filter.From.IsZero() && e.Time.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && e.Time.After(filter.To) {
		return false
	}
	return true
}
