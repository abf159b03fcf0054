package handoff

import (
	"context"
	"testing"
)

func TestMemoryChannelSendReceive(t *testing.T) {
	ctx := context.Background()
	ch := NewMemory()

	if _, ok, err := ch.Receive(ctx); ok || err != nil {
		t.Fatalf("receive on empty channel: ok=%v err=%v", ok, err)
	}

	if got := ch.Send(ctx, "payload-1"); got != Delivered {
		t.Fatalf("send outcome = %v, want delivered", got)
	}
	// A second send overwrites the slot, clipboard-style.
	if got := ch.Send(ctx, "payload-2"); got != Delivered {
		t.Fatalf("send outcome = %v, want delivered", got)
	}

	payload, ok, err := ch.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !ok || payload != "payload-2" {
		t.Errorf("receive = (%q, %v), want (%q, true)", payload, ok, "payload-2")
	}

	// The receive consumed the slot.
	if _, ok, _ := ch.Receive(ctx); ok {
		t.Error("second receive still found a payload")
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{Pending, "pending"},
		{Delivered, "delivered"},
		{PermissionDenied, "permission_denied"},
		{Unavailable, "unavailable"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.o), got, tt.want)
		}
	}
}
