package nfc

import (
	"context"
	"time"
)

// Operation names a simulated reader operation for the purpose of delaying it.
type Operation int

const (
	OpConnect Operation = iota
	OpDisconnect
	OpInsert
	OpRemove
	// OpSettle is the pause between a card removal and the reader going back to idle.
	OpSettle
	OpRead
	OpWrite
	OpAuthenticate
	OpReadMyNumber
	OpVerifyPIN
	OpCertificate
)

var operationNames = map[Operation]string{
	OpConnect:      "connect",
	OpDisconnect:   "disconnect",
	OpInsert:       "insert",
	OpRemove:       "remove",
	OpSettle:       "settle",
	OpRead:         "read",
	OpWrite:        "write",
	OpAuthenticate: "authenticate",
	OpReadMyNumber: "readMyNumber",
	OpVerifyPIN:    "verifyPin",
	OpCertificate:  "certificate",
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "unknown"
}

// Delay decides how long a simulated operation blocks. Wait must return
// ctx.Err() if the context ends first.
type Delay interface {
	Wait(ctx context.Context, op Operation) error
}

// DelayFunc adapts a function to the Delay interface.
type DelayFunc func(ctx context.Context, op Operation) error

func (f DelayFunc) Wait(ctx context.Context, op Operation) error {
	return f(ctx, op)
}

// Latency is a fixed duration per operation. Missing operations don't wait.
type Latency map[Operation]time.Duration

func (l Latency) Wait(ctx context.Context, op Operation) error {
	d := l[op]
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay completes every operation immediately.
var NoDelay Delay = Latency(nil)

// DefaultLatency mimics the timings of a real USB reader.
func DefaultLatency() Latency {
	return Latency{
		OpConnect:      500 * time.Millisecond,
		OpDisconnect:   200 * time.Millisecond,
		OpInsert:       300 * time.Millisecond,
		OpRemove:       100 * time.Millisecond,
		OpSettle:       500 * time.Millisecond,
		OpRead:         200 * time.Millisecond,
		OpWrite:        400 * time.Millisecond,
		OpAuthenticate: 800 * time.Millisecond,
		OpReadMyNumber: 500 * time.Millisecond,
		OpVerifyPIN:    800 * time.Millisecond,
		OpCertificate:  300 * time.Millisecond,
	}
}
