package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

type mockNotifier struct {
	name       string
	sendCalled int
	batchCalls int
	lastBatch  []core.SignalEvent
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, event core.SignalEvent) error {
	m.sendCalled++
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func (m *mockNotifier) SendBatch(ctx context.Context, events []core.SignalEvent) error {
	m.batchCalls++
	m.lastBatch = events
	if m.shouldFail {
		return errors.New("batch send failed")
	}
	return nil
}

func testEvent() core.SignalEvent {
	return core.SignalEvent{
		ID:       "evt-1",
		Subject:  "SOLUSDT",
		Kind:     core.KindLong,
		Strength: 0.7,
		Evidence: "LONG signal on SOLUSDT",
		Time:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Source:   "price",
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	if err := r.Register(mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	if err := r.Register(mock); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 notifier, got %d", r.Len())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected 'test', got %s", n.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for missing notifier")
	}
}

func TestRegistry_GetAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "email"})
	r.Register(&mockNotifier{name: "telegram"})

	all := r.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 notifiers, got %d", len(all))
	}
	if all[0].Name() != "email" || all[2].Name() != "webhook" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].Name(), all[1].Name(), all[2].Name())
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	errs := r.NotifyAll(context.Background(), testEvent())
	if ok.sendCalled != 1 || bad.sendCalled != 1 {
		t.Errorf("expected each notifier to be called once")
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs["bad"], core.ErrNotifierFailed) {
		t.Errorf("expected ErrNotifierFailed, got %v", errs["bad"])
	}
}

func TestRegistry_NotifyAllBatch(t *testing.T) {
	r := NewRegistry()
	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	events := []core.SignalEvent{testEvent(), testEvent()}
	errs := r.NotifyAllBatch(context.Background(), events)
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if mock.batchCalls != 1 || len(mock.lastBatch) != 2 {
		t.Errorf("expected one batch of 2, got %d calls / %d events", mock.batchCalls, len(mock.lastBatch))
	}
}

func TestRegistry_NotifyAllBatch_Empty(t *testing.T) {
	r := NewRegistry()
	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	r.NotifyAllBatch(context.Background(), nil)
	if mock.batchCalls != 0 {
		t.Errorf("expected no batch for empty events")
	}
}

func TestFormatDigest(t *testing.T) {
	macro := core.SignalEvent{Kind: core.KindNegative, Group: core.MacroGroup, Evidence: "Recession (Negative, -0.50): t"}
	msg := FormatDigest([]core.SignalEvent{testEvent(), macro})

	if !strings.HasPrefix(msg, DigestHeader) {
		t.Errorf("missing header: %q", msg)
	}
	if !strings.Contains(msg, "📈 LONG signal on SOLUSDT") {
		t.Errorf("missing price line: %q", msg)
	}
	if !strings.Contains(msg, "\n\n🌍 Recession") {
		t.Errorf("missing macro line: %q", msg)
	}
}
