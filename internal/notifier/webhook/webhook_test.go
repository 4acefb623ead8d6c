package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/notifier"
)

func sampleEvent() core.SignalEvent {
	return core.SignalEvent{
		ID:       "evt-1",
		Subject:  "BITCOIN",
		Kind:     core.KindPositive,
		Strength: 0.55,
		Evidence: "BITCOIN (Positive, 0.55): ETF inflows surge",
		Time:     time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC),
		Group:    "BITCOIN",
		Source:   "Google News",
	}
}

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_Name(t *testing.T) {
	w := New("http://example.com/hook", nil)
	if w.Name() != "webhook" {
		t.Errorf("expected 'webhook', got %s", w.Name())
	}
}

func TestWebhook_Send(t *testing.T) {
	var receivedPayload map[string]any
	var receivedHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeader = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New(server.URL, map[string]string{"X-Token": "secret"})

	if err := w.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedHeader != "secret" {
		t.Errorf("expected custom header, got %q", receivedHeader)
	}
	if receivedPayload["subject"] != "BITCOIN" {
		t.Errorf("expected subject BITCOIN, got %v", receivedPayload["subject"])
	}
	if receivedPayload["kind"] != "POSITIVE" {
		t.Errorf("expected kind POSITIVE, got %v", receivedPayload["kind"])
	}
	if receivedPayload["time"] != "2025-03-01T08:30:00Z" {
		t.Errorf("unexpected time %v", receivedPayload["time"])
	}
}

func TestWebhook_SendBatch(t *testing.T) {
	var receivedPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New(server.URL, nil)
	events := []core.SignalEvent{sampleEvent(), sampleEvent()}

	if err := w.SendBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedPayload["type"] != "batch" {
		t.Errorf("expected type batch, got %v", receivedPayload["type"])
	}
	if receivedPayload["count"] != float64(2) {
		t.Errorf("expected count 2, got %v", receivedPayload["count"])
	}
	if items, ok := receivedPayload["events"].([]any); !ok || len(items) != 2 {
		t.Errorf("expected 2 events, got %v", receivedPayload["events"])
	}
}

func TestWebhook_SendBatchEmpty(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	if err := New(server.URL, nil).SendBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected no request for empty batch")
	}
}

func TestWebhook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := New(server.URL, nil).Send(context.Background(), sampleEvent()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestWebhook_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(server.URL, nil).Send(ctx, sampleEvent()); err == nil {
		t.Error("expected error for canceled context")
	}
}
