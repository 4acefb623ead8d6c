// Package notifier delivers signal events to external channels.
package notifier

import (
	"context"

	"github.com/newthinker/pulse/internal/core"
)

// Notifier defines the interface for signal notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single event
	Send(ctx context.Context, event core.SignalEvent) error

	// SendBatch delivers events as one digest where the channel supports it
	SendBatch(ctx context.Context, events []core.SignalEvent) error
}
