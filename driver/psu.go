package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rigtools/hilserial"
)

// psuCommands maps short command tokens to wire commands. The table doubles
// as the diagnostic list shown on an unrecognized token.
var psuCommands = map[string]string{
	"on":     "SOUT0",
	"off":    "SOUT1",
	"reset":  "SRST",
	"status": "GETD",
}

// voltagePollInterval is the cadence of WaitForVoltage readouts.
const voltagePollInterval = 500 * time.Millisecond

// PowerSupply drives a bench power supply speaking an ASCII command/response
// dialect: commands are CR-terminated (configure the transport with
// WithEOL("\r")), the canonical success reply is the literal "OK", and the
// status readout is a fixed 9-digit field.
type PowerSupply struct {
	conn    LineConn
	timeout time.Duration // per-exchange budget
	poll    time.Duration // WaitForVoltage cadence
	log     *zap.Logger
}

// Display is a parsed status readout.
type Display struct {
	Volts  float64
	Amps   float64
	Status int
}

// NewPowerSupply returns a driver over conn. timeout bounds each exchange;
// zero selects a 2s default. A nil logger disables logging.
func NewPowerSupply(conn LineConn, timeout time.Duration, logger *zap.Logger) *PowerSupply {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PowerSupply{conn: conn, timeout: timeout, poll: voltagePollInterval, log: logger}
}

// Tokens returns the recognized command tokens in sorted order.
func Tokens() []string {
	tokens := make([]string, 0, len(psuCommands))
	for tok := range psuCommands {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// SendCommand runs the exchange for a short command token. Unrecognized
// tokens fail with ErrUsage.
func (p *PowerSupply) SendCommand(ctx context.Context, token string) error {
	command, ok := psuCommands[token]
	if !ok {
		return fmt.Errorf("token %q not in [%s]: %w",
			token, strings.Join(Tokens(), " "), hilserial.ErrUsage)
	}
	_, err := p.DoCommand(ctx, command)
	return err
}

// DoCommand writes command and waits for the acknowledging "OK". Only lines
// received after the command was enqueued qualify; anything buffered before
// that is a leftover from a prior exchange and is ignored even if it reads
// "OK". The last non-blank line seen before the acknowledgement is returned
// as the reply payload.
func (p *PowerSupply) DoCommand(ctx context.Context, command string) (string, error) {
	putAt, err := p.conn.PutLine(ctx, command, p.timeout)
	if err != nil {
		return "", err
	}
	p.log.Debug("command sent", zap.String("command", command))

	deadline := time.Now().Add(p.timeout)
	var lastReply string
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return lastReply, fmt.Errorf("no OK for %q (last reply %q): %w",
				command, lastReply, hilserial.ErrTimeout)
		}

		line, err := p.conn.GetLine(ctx, remaining)
		if err != nil {
			if errors.Is(err, hilserial.ErrTimeout) {
				return lastReply, fmt.Errorf("no OK for %q (last reply %q): %w",
					command, lastReply, hilserial.ErrTimeout)
			}
			return lastReply, err
		}

		if line.At > putAt && line.Text == "OK" {
			return lastReply, nil
		}
		if line.Text != "" {
			lastReply = line.Text
		}
	}
}

// GetDisplay issues the status-read command and parses its reply: four
// digits of voltage in hundredths, four digits of current in hundredths,
// and one status digit. A shorter or non-numeric payload fails with
// ErrProtocol.
func (p *PowerSupply) GetDisplay(ctx context.Context) (Display, error) {
	payload, err := p.DoCommand(ctx, psuCommands["status"])
	if err != nil {
		return Display{}, err
	}
	if len(payload) < 9 {
		return Display{}, fmt.Errorf("status payload %q shorter than 9 digits: %w",
			payload, hilserial.ErrProtocol)
	}

	volts, err := strconv.Atoi(payload[0:4])
	if err != nil {
		return Display{}, fmt.Errorf("voltage field in %q: %w", payload, hilserial.ErrProtocol)
	}
	amps, err := strconv.Atoi(payload[4:8])
	if err != nil {
		return Display{}, fmt.Errorf("current field in %q: %w", payload, hilserial.ErrProtocol)
	}
	status, err := strconv.Atoi(payload[8:9])
	if err != nil {
		return Display{}, fmt.Errorf("status field in %q: %w", payload, hilserial.ErrProtocol)
	}

	return Display{
		Volts:  float64(volts) / 100,
		Amps:   float64(amps) / 100,
		Status: status,
	}, nil
}

// WaitForVoltage polls GetDisplay on a fixed cadence until the voltage
// crosses threshold: upward past it when isMinimum is set, downward
// otherwise. The wait is unbounded; apply a deadline through ctx. Readout
// timeouts are retried, other readout failures abort.
func (p *PowerSupply) WaitForVoltage(ctx context.Context, isMinimum bool, threshold float64) (Display, error) {
	for {
		display, err := p.GetDisplay(ctx)
		switch {
		case err == nil:
			if isMinimum && display.Volts >= threshold {
				return display, nil
			}
			if !isMinimum && display.Volts <= threshold {
				return display, nil
			}
			p.log.Debug("voltage not crossed",
				zap.Float64("volts", display.Volts),
				zap.Float64("threshold", threshold))
		case errors.Is(err, hilserial.ErrTimeout):
			p.log.Debug("status readout timed out, retrying")
		default:
			return Display{}, err
		}

		select {
		case <-ctx.Done():
			return Display{}, ctx.Err()
		case <-time.After(p.poll):
		}
	}
}
