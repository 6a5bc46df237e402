package hilserial

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Line is a single terminated line of instrument output. At is the offset
// from the owning transport's session clock, captured when the blocking read
// that completed the line returned. Lines are never mutated after creation;
// At exists so drivers can discard replies that predate their request.
type Line struct {
	Text string
	At   time.Duration
}

// writerStop is a reserved sentinel pushed into the outbound queue during
// Close. The writer worker exits when it dequeues it, without writing it to
// the device. Lines containing NUL bytes cannot be sent anyway, so the value
// can never collide with caller traffic.
const writerStop = "\x00stop\x00"

// Transport converts a blocking, byte-oriented device into a line-oriented,
// timestamped interface. Exactly one reader and one writer goroutine touch
// the device per session; callers talk to them through two bounded queues.
// A Transport is safe for concurrent use.
type Transport struct {
	dev    Device
	config Config
	log    *zap.Logger

	start time.Time // session clock epoch, shared by reads and writes

	inQ        chan Line
	outQ       chan string
	done       chan struct{} // closed when the session stops
	writerDone chan struct{}

	running   atomic.Bool
	dropped   atomic.Uint64
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open opens the serial device at path and starts a transport session on it.
// The caller owns the session and must Close it on every exit path.
func Open(path string, opts ...Option) (*Transport, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	dev, err := openPort(path, config)
	if err != nil {
		return nil, err
	}
	return newTransport(dev, config), nil
}

// NewTransport starts a transport session on an already-open device. Useful
// when the device is a pty pair, an in-memory fake, or a handle opened with
// custom settings.
func NewTransport(dev Device, opts ...Option) (*Transport, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	return newTransport(dev, config), nil
}

func newTransport(dev Device, config Config) *Transport {
	t := &Transport{
		dev:        dev,
		config:     config,
		log:        config.Logger,
		start:      time.Now(),
		inQ:        make(chan Line, config.InboundSize),
		outQ:       make(chan string, config.OutboundSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	t.running.Store(true)

	t.wg.Add(2)
	go t.readWorker()
	go t.writeWorker()

	return t
}

// now returns the current offset on the session clock.
func (t *Transport) now() time.Duration {
	return time.Since(t.start)
}

// Running reports whether the session is still up.
func (t *Transport) Running() bool {
	return t.running.Load()
}

// Dropped returns the number of inbound lines discarded because the inbound
// queue was full. Overflow is a counted event, not an error.
func (t *Transport) Dropped() uint64 {
	return t.dropped.Load()
}

// readWorker owns the device's read side. It performs chunked blocking reads
// bounded by the hardware read timeout, splits the byte stream on the
// configured terminator, and stamps every completed line with the time the
// read call returned. The last unterminated fragment stays buffered until
// more bytes arrive.
func (t *Transport) readWorker() {
	defer t.wg.Done()

	buf := make([]byte, 4096)
	eol := []byte(t.config.EOL)
	var pending []byte

	for t.running.Load() {
		n, err := t.dev.Read(buf)
		stamp := t.now()
		if err != nil {
			if t.running.Load() {
				t.log.Debug("device read failed", zap.Error(err))
			}
			return
		}
		if n == 0 {
			// Hardware timeout, line is silent. With VTIME 0 the read
			// returns instantly, so pace the loop ourselves.
			if t.config.ReadTimeoutTenths == 0 {
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}

		pending = append(pending, buf[:n]...)
		for {
			i := bytes.Index(pending, eol)
			if i < 0 {
				break
			}
			line := Line{Text: decodeText(pending[:i]), At: stamp}
			pending = pending[i+len(eol):]

			select {
			case t.inQ <- line:
			default:
				// Never stall the reader behind a slow consumer:
				// drop the new line and count it.
				t.dropped.Add(1)
				t.log.Warn("inbound queue full, dropping line",
					zap.String("line", line.Text),
					zap.Uint64("dropped", t.dropped.Load()))
			}
		}
	}
}

// writeWorker owns the device's write side. It drains the outbound queue in
// order, appending the terminator to each item. The reserved sentinel causes
// a clean exit without touching the device.
func (t *Transport) writeWorker() {
	defer t.wg.Done()
	defer close(t.writerDone)

	for text := range t.outQ {
		if text == writerStop {
			return
		}
		if _, err := t.dev.Write([]byte(text + t.config.EOL)); err != nil {
			t.log.Warn("device write failed", zap.Error(err))
			continue
		}
		if t.config.Echo {
			t.log.Info("tx", zap.String("line", text))
		}
	}
}

// decodeText decodes raw line bytes, substituting malformed sequences rather
// than failing the stream. Multi-byte sequences split across read chunks are
// not an issue here because decoding happens on complete lines only.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// GetLine returns the next inbound line. It waits up to timeout (zero or
// negative means indefinitely) and fails with ErrTimeout when the budget is
// exhausted. Lines already buffered are returned even after the session has
// stopped; waiting on a stopped session with an empty queue fails with
// ErrStopped.
func (t *Transport) GetLine(ctx context.Context, timeout time.Duration) (Line, error) {
	select {
	case line := <-t.inQ:
		return line, nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case line := <-t.inQ:
		return line, nil
	case <-expired:
		return Line{}, fmt.Errorf("no line within %s: %w", timeout, ErrTimeout)
	case <-ctx.Done():
		return Line{}, ctx.Err()
	case <-t.done:
		// Drain anything that raced in ahead of the stop.
		select {
		case line := <-t.inQ:
			return line, nil
		default:
			return Line{}, ErrStopped
		}
	}
}

// PutLine enqueues text for transmission and returns the enqueue time on the
// session clock, not the time of the physical write. It waits up to timeout
// (zero or negative means indefinitely) for queue space and fails with
// ErrTimeout when the budget is exhausted.
func (t *Transport) PutLine(ctx context.Context, text string, timeout time.Duration) (time.Duration, error) {
	if !t.running.Load() {
		return 0, ErrStopped
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case t.outQ <- text:
		return t.now(), nil
	case <-expired:
		return 0, fmt.Errorf("no outbound space within %s: %w", timeout, ErrTimeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.done:
		return 0, ErrStopped
	}
}

// Close tears the session down: stops the workers, flushes writes already
// queued ahead of the stop sentinel, aborts the reader's blocking read by
// closing the device, and joins both workers bounded by the configured join
// timeout. Close is idempotent and must run on every exit path.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.running.Store(false)
		close(t.done)

		// The sentinel queues behind any pending writes; wait for the
		// writer to drain them all before the device goes away. A
		// writer wedged in a device write trips a timeout arm instead,
		// and the device close below unblocks it.
		select {
		case t.outQ <- writerStop:
			select {
			case <-t.writerDone:
			case <-time.After(t.config.JoinTimeout):
			}
		case <-t.writerDone:
		case <-time.After(t.config.JoinTimeout):
		}

		// Closing the device aborts an in-flight blocking read.
		t.closeErr = t.dev.Close()

		// Second chance for the sentinel: a wedged writer has been
		// unblocked by the device close and is draining again.
		select {
		case t.outQ <- writerStop:
		case <-t.writerDone:
		case <-time.After(t.config.JoinTimeout):
		}

		joined := make(chan struct{})
		go func() {
			t.wg.Wait()
			close(joined)
		}()
		select {
		case <-joined:
		case <-time.After(t.config.JoinTimeout):
			t.log.Warn("worker join timed out", zap.Duration("timeout", t.config.JoinTimeout))
		}
	})
	return t.closeErr
}
