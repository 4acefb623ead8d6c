// Package dedup gates signal events so each identity is reported once per
// ledger lifetime.
package dedup

import (
	"sort"
	"sync"
)

// Ledger is a concurrency-safe set of admitted keys. It never evicts; each
// evaluation run builds a new one from the persisted keys.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates a ledger pre-populated with seed keys, which are treated as
// already admitted.
func New(seed ...string) *Ledger {
	l := &Ledger{seen: make(map[string]struct{}, len(seed))}
	for _, k := range seed {
		l.seen[k] = struct{}{}
	}
	return l
}

// Admit records key and returns true the first time it is seen. Every later
// call with an equal key returns false.
func (l *Ledger) Admit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	return true
}

// Keys returns all known keys in sorted order.
func (l *Ledger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.seen))
	for k := range l.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
