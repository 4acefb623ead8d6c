// Package signal keeps the recent history of routed signal events.
package signal

import (
	"context"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

// Store defines the interface for event persistence.
type Store interface {
	// Save persists an event, assigning an ID when it has none.
	Save(ctx context.Context, event core.SignalEvent) error

	// GetByID retrieves an event by its ID.
	GetByID(ctx context.Context, id string) (*core.SignalEvent, error)

	// List retrieves events matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]core.SignalEvent, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing events.
type ListFilter struct {
	Subject string
	Kind    core.Kind
	Source  string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}
