// Package series holds bounded, time-ordered sample windows per instrument.
package series

import (
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 100

// Buffer is a FIFO sliding window of samples with strictly increasing timestamps.
type Buffer struct {
	mu       sync.RWMutex
	samples  []core.Sample
	capacity int
}

// New creates a buffer holding at most capacity samples.
func New(capacity int) (*Buffer, error) {
	if capacity <= 1 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("series capacity must be greater than 1, got %d", capacity))
	}
	return &Buffer{
		samples:  make([]core.Sample, 0, capacity),
		capacity: capacity,
	}, nil
}

// Push appends s, evicting the oldest sample when full.
// A sample not strictly newer than the last stored one is rejected and the
// buffer is left unchanged.
func (b *Buffer) Push(s core.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.samples); n > 0 {
		last := b.samples[n-1].Time
		if !s.Time.After(last) {
			return core.WrapError(core.ErrOutOfOrderSample,
				fmt.Errorf("%s <= %s", s.Time.Format(time.RFC3339), last.Format(time.RFC3339)))
		}
	}

	if len(b.samples) == b.capacity {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:len(b.samples)-1]
	}
	b.samples = append(b.samples, s)
	return nil
}

// Snapshot returns an ordered copy of the window.
func (b *Buffer) Snapshot() []core.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Last returns the newest sample.
func (b *Buffer) Last() (core.Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.samples) == 0 {
		return core.Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Len returns the number of stored samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Capacity returns the fixed window size.
func (b *Buffer) Capacity() int {
	return b.capacity
}
