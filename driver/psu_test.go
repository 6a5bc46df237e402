package driver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rigtools/hilserial"
)

// scriptConn is a scripted LineConn. Every PutLine advances the fake session
// clock and enqueues the replies the script produces for that command;
// GetLine pops them in order and reports a timeout once the queue is empty.
type scriptConn struct {
	mu    sync.Mutex
	now   time.Duration
	puts  []string
	queue []hilserial.Line

	// reply produces the lines triggered by a command. putAt is the time
	// PutLine returns for it.
	reply func(command string, putAt time.Duration) []hilserial.Line
}

func (c *scriptConn) PutLine(ctx context.Context, text string, timeout time.Duration) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += 10 * time.Millisecond
	c.puts = append(c.puts, text)
	if c.reply != nil {
		c.queue = append(c.queue, c.reply(text, c.now)...)
	}
	return c.now, nil
}

func (c *scriptConn) GetLine(ctx context.Context, timeout time.Duration) (hilserial.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return hilserial.Line{}, fmt.Errorf("script exhausted: %w", hilserial.ErrTimeout)
	}
	line := c.queue[0]
	c.queue = c.queue[1:]
	return line, nil
}

// okAfter scripts the canonical exchange: the given payload lines followed
// by "OK", all stamped after the put.
func okAfter(payload ...string) func(string, time.Duration) []hilserial.Line {
	return func(_ string, putAt time.Duration) []hilserial.Line {
		var lines []hilserial.Line
		at := putAt
		for _, text := range append(payload, "OK") {
			at += time.Millisecond
			lines = append(lines, hilserial.Line{Text: text, At: at})
		}
		return lines
	}
}

func TestSendCommandUnknownToken(t *testing.T) {
	psu := NewPowerSupply(&scriptConn{}, time.Second, nil)

	err := psu.SendCommand(context.Background(), "explode")
	require.ErrorIs(t, err, hilserial.ErrUsage)
	require.ErrorContains(t, err, "explode")
}

func TestSendCommandKnownTokens(t *testing.T) {
	conn := &scriptConn{reply: okAfter()}
	psu := NewPowerSupply(conn, time.Second, nil)
	ctx := context.Background()

	for _, token := range []string{"on", "off", "reset", "status"} {
		require.NoError(t, psu.SendCommand(ctx, token))
	}
	require.Equal(t, []string{"SOUT0", "SOUT1", "SRST", "GETD"}, conn.puts)
}

func TestDoCommandDiscardsStaleOK(t *testing.T) {
	// An "OK" buffered before the request followed by a genuine one: only
	// the second may resolve the exchange.
	conn := &scriptConn{reply: func(_ string, putAt time.Duration) []hilserial.Line {
		return []hilserial.Line{
			{Text: "OK", At: putAt - 5*time.Millisecond},
			{Text: "OK", At: putAt + 5*time.Millisecond},
		}
	}}
	psu := NewPowerSupply(conn, time.Second, nil)

	_, err := psu.DoCommand(context.Background(), "SOUT0")
	require.NoError(t, err)
	require.Empty(t, conn.queue, "stale OK must have been consumed, not matched")
}

func TestDoCommandOnlyStaleRepliesTimesOut(t *testing.T) {
	conn := &scriptConn{reply: func(_ string, putAt time.Duration) []hilserial.Line {
		return []hilserial.Line{{Text: "OK", At: putAt - time.Millisecond}}
	}}
	psu := NewPowerSupply(conn, 50*time.Millisecond, nil)

	_, err := psu.DoCommand(context.Background(), "SOUT0")
	require.ErrorIs(t, err, hilserial.ErrTimeout)
}

func TestDoCommandReportsLastDiagnosticLine(t *testing.T) {
	conn := &scriptConn{reply: okAfter("", "E01 output fault")}
	psu := NewPowerSupply(conn, 50*time.Millisecond, nil)

	reply, err := psu.DoCommand(context.Background(), "SOUT0")
	require.NoError(t, err)
	require.Equal(t, "E01 output fault", reply)
}

func TestGetDisplay(t *testing.T) {
	conn := &scriptConn{reply: okAfter("", "030201451")}
	psu := NewPowerSupply(conn, time.Second, nil)

	display, err := psu.GetDisplay(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 3.02, display.Volts, 0.001)
	require.InDelta(t, 1.45, display.Amps, 0.001)
	require.Equal(t, 1, display.Status)
	require.Equal(t, []string{"GETD"}, conn.puts)
}

func TestGetDisplayShortPayload(t *testing.T) {
	conn := &scriptConn{reply: okAfter("0302")}
	psu := NewPowerSupply(conn, time.Second, nil)

	_, err := psu.GetDisplay(context.Background())
	require.ErrorIs(t, err, hilserial.ErrProtocol)
}

func TestGetDisplayNonNumericPayload(t *testing.T) {
	conn := &scriptConn{reply: okAfter("03X201451")}
	psu := NewPowerSupply(conn, time.Second, nil)

	_, err := psu.GetDisplay(context.Background())
	require.ErrorIs(t, err, hilserial.ErrProtocol)
}

func TestWaitForVoltageRising(t *testing.T) {
	readouts := []string{"010000001", "020500001", "031000001"}
	i := 0
	conn := &scriptConn{}
	conn.reply = func(_ string, putAt time.Duration) []hilserial.Line {
		payload := readouts[i]
		if i < len(readouts)-1 {
			i++
		}
		return okAfter(payload)("", putAt)
	}

	psu := NewPowerSupply(conn, time.Second, nil)
	psu.poll = time.Millisecond

	display, err := psu.WaitForVoltage(context.Background(), true, 3.0)
	require.NoError(t, err)
	require.InDelta(t, 3.10, display.Volts, 0.001)
}

func TestWaitForVoltageFalling(t *testing.T) {
	readouts := []string{"050000001", "001000001"}
	i := 0
	conn := &scriptConn{}
	conn.reply = func(_ string, putAt time.Duration) []hilserial.Line {
		payload := readouts[i]
		if i < len(readouts)-1 {
			i++
		}
		return okAfter(payload)("", putAt)
	}

	psu := NewPowerSupply(conn, time.Second, nil)
	psu.poll = time.Millisecond

	display, err := psu.WaitForVoltage(context.Background(), false, 0.5)
	require.NoError(t, err)
	require.InDelta(t, 0.10, display.Volts, 0.001)
}

func TestWaitForVoltageHonorsContext(t *testing.T) {
	conn := &scriptConn{reply: okAfter("000000001")}
	psu := NewPowerSupply(conn, time.Second, nil)
	psu.poll = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := psu.WaitForVoltage(ctx, true, 3.0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
