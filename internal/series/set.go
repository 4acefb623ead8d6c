package series

import (
	"sort"
	"sync"
)

// Set keeps one Buffer per instrument so instruments never share mutable state.
type Set struct {
	mu       sync.Mutex
	buffers  map[string]*Buffer
	capacity int
}

// NewSet creates an empty set whose buffers share one capacity.
func NewSet(capacity int) (*Set, error) {
	// validate once so Get never fails
	if _, err := New(capacity); err != nil {
		return nil, err
	}
	return &Set{
		buffers:  make(map[string]*Buffer),
		capacity: capacity,
	}, nil
}

// Get returns the buffer for symbol, creating it on first use.
func (s *Set) Get(symbol string) *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[symbol]
	if !ok {
		b, _ = New(s.capacity)
		s.buffers[symbol] = b
	}
	return b
}

// Symbols returns tracked instruments in sorted order.
func (s *Set) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.buffers))
	for sym := range s.buffers {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
