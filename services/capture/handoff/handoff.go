package handoff

import "context"

// Outcome is the typed result of a transfer attempt. Transfers never raise;
// permission and availability problems resolve to an outcome so the capture
// session can continue and surface a non-blocking warning.
type Outcome int

const (
	// Pending is the zero value: no transfer has been attempted yet.
	Pending Outcome = iota
	Delivered
	PermissionDenied
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	case PermissionDenied:
		return "permission_denied"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Channel is the asynchronous transfer medium between the extraction context
// and the companion context. The two ends never share memory: payloads move
// by value. A channel holds at most one payload; a send overwrites the slot
// and a receive consumes it.
type Channel interface {
	Send(ctx context.Context, payload string) Outcome
	Receive(ctx context.Context) (payload string, ok bool, err error)
}
