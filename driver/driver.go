// Package driver contains the protocol drivers built on the hilserial
// transport and race primitives: a command/response driver for bench power
// supplies, a pattern watch that races a matcher against agitator and
// heartbeat roles, and a streaming parser for test-run completion markers.
//
// Drivers hold a reference to an already-open transport and have no
// lifecycle of their own beyond the call they are servicing. A failed
// exchange leaves the transport usable for subsequent calls.
package driver

import (
	"context"
	"time"

	"github.com/rigtools/hilserial"
)

// LineConn is the transport surface the drivers need. *hilserial.Transport
// implements it; tests substitute scripted fakes.
type LineConn interface {
	GetLine(ctx context.Context, timeout time.Duration) (hilserial.Line, error)
	PutLine(ctx context.Context, text string, timeout time.Duration) (time.Duration, error)
}

var _ LineConn = (*hilserial.Transport)(nil)
