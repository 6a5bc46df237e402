// Package hilserial provides the line-oriented serial core for
// hardware-in-the-loop test automation: a timestamped line transport over a
// physical instrument link, and a task-racing primitive for composing
// protocol steps concurrently with deterministic cancellation.
//
// # Transport
//
// Open a session on a serial device (scoped acquisition; always Close):
//
//	t, err := hilserial.Open("/dev/ttyUSB0",
//	    hilserial.WithBaudRate(9600),
//	    hilserial.WithEOL("\r"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	putAt, err := t.PutLine(ctx, "GETD", 2*time.Second)
//	line, err := t.GetLine(ctx, 2*time.Second)
//
// Exactly one reader and one writer goroutine per session touch the device;
// callers see only the two bounded queues behind GetLine and PutLine. Every
// line carries a timestamp from the session's monotonic clock, assigned the
// moment the blocking read that completed it returned. PutLine returns the
// enqueue time on the same clock, so a driver can reject buffered replies
// that predate its request:
//
//	if line.At > putAt && line.Text == "OK" { ... }
//
// When the inbound queue is full the reader drops the newest line and counts
// it (see Dropped) rather than stalling on a slow consumer.
//
// # Racing tasks
//
// Spawn starts concurrent work; Observe, ObserveAssertNotDone and Gate
// resolve a primary task against secondaries with timeout control:
//
//	matcher := hilserial.Spawn(ctx, "matcher", findPrompt)
//	agitator := hilserial.Spawn(ctx, "agitator", pokeConsole)
//	result, cancelled, err := hilserial.Gate(matcher, 30*time.Second, agitator)
//
// Gate cancels surviving secondaries and awaits every cancellation before it
// returns, so no background activity outlives the call.
//
// # Errors
//
// Failures are reported through sentinel errors checked with errors.Is:
// ErrTimeout for exhausted budgets, ErrStopped for a dead session,
// ErrAssertion from ObserveAssertNotDone, and ErrProtocol / ErrUsage from
// the protocol drivers in the driver subpackage. A failed exchange never
// tears the session down; only Close does.
package hilserial
