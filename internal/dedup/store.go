package dedup

import "context"

// Store persists admitted keys between runs. Loaded keys seed the next
// run's ledger.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, keys []string) error
	Close() error
}

// NopStore keeps nothing, so every run starts with an empty ledger.
type NopStore struct{}

func (NopStore) Load(context.Context) ([]string, error) { return nil, nil }
func (NopStore) Save(context.Context, []string) error   { return nil }
func (NopStore) Close() error                           { return nil }
