package signal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func event(subject string, kind core.Kind, minute int) core.SignalEvent {
	return core.SignalEvent{
		Subject:  subject,
		Kind:     kind,
		Strength: 0.5,
		Time:     base.Add(time.Duration(minute) * time.Minute),
		Source:   "price",
	}
}

func TestMemoryStore_SaveAssignsID(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	if err := store.Save(ctx, event("SOLUSDT", core.KindLong, 0)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	withID := event("ETHUSDT", core.KindShort, 1)
	withID.ID = "fixed"
	store.Save(ctx, withID)

	events, _ := store.List(ctx, ListFilter{})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "fixed" {
		t.Errorf("expected newest first with kept ID, got %q", events[0].ID)
	}
	if events[1].ID == "" {
		t.Error("expected generated ID")
	}
}

func TestMemoryStore_Filters(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	store.Save(ctx, event("SOLUSDT", core.KindLong, 0))
	store.Save(ctx, event("SOLUSDT", core.KindShort, 1))
	store.Save(ctx, event("ETHUSDT", core.KindLong, 2))
	text := event("BITCOIN", core.KindPositive, 3)
	text.Source = "Google News"
	store.Save(ctx, text)

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"all", ListFilter{}, 4},
		{"subject case-insensitive", ListFilter{Subject: "solusdt"}, 2},
		{"kind", ListFilter{Kind: core.KindLong}, 2},
		{"source", ListFilter{Source: "Google News"}, 1},
		{"from", ListFilter{From: base.Add(2 * time.Minute)}, 2},
		{"to", ListFilter{To: base.Add(time.Minute)}, 2},
		{"limit", ListFilter{Limit: 3}, 3},
		{"offset", ListFilter{Offset: 3}, 1},
		{"offset past end", ListFilter{Offset: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(got))
			}
			n, _ := store.Count(ctx, ListFilter{Subject: tt.filter.Subject, Kind: tt.filter.Kind, Source: tt.filter.Source, From: tt.filter.From, To: tt.filter.To})
			if tt.filter.Limit == 0 && tt.filter.Offset == 0 && n != tt.want {
				t.Errorf("Count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := event("SOLUSDT", core.KindLong, i)
		e.ID = fmt.Sprintf("e%d", i)
		store.Save(ctx, e)
	}

	events, _ := store.List(ctx, ListFilter{})
	if len(events) != 3 {
		t.Fatalf("expected 3 events after trim, got %d", len(events))
	}
	if events[0].ID != "e4" || events[2].ID != "e2" {
		t.Errorf("expected e4..e2, got %s..%s", events[0].ID, events[2].ID)
	}
}

func TestMemoryStore_GetByID(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	e := event("SOLUSDT", core.KindLong, 0)
	e.ID = "abc"
	store.Save(ctx, e)

	got, err := store.GetByID(ctx, "abc")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Subject != "SOLUSDT" {
		t.Errorf("unexpected subject %s", got.Subject)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
