package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("signal %s not found", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrInvalidState) {
		t.Fatalf("not_found must not match invalid_state")
	}
	wrapped := fmt.Errorf("cancel: %w", err)
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("kind=%s want=%s", KindOf(wrapped), KindNotFound)
	}
}

func TestStoreIOPassesClassifiedErrors(t *testing.T) {
	inner := InvalidState("already cancelled")
	if got := StoreIO(inner, "cancel"); KindOf(got) != KindInvalidState {
		t.Fatalf("kind=%s want=%s", KindOf(got), KindInvalidState)
	}
	raw := errors.New("connection reset")
	got := StoreIO(raw, "upsert signal")
	if !errors.Is(got, ErrStoreIO) {
		t.Fatalf("expected store_io, got %v", got)
	}
	if !errors.Is(got, raw) {
		t.Fatalf("cause must stay reachable")
	}
	if StoreIO(nil, "noop") != nil {
		t.Fatalf("nil cause must yield nil")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(Validation("confidence %v out of range", 120)); got != "confidence 120 out of range" {
		t.Fatalf("message=%q", got)
	}
	if KindOf(errors.New("x")) != KindUnknown {
		t.Fatalf("plain errors must be unknown")
	}
}
