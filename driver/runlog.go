package driver

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/rigtools/hilserial"
)

// Outcome classifies how a streamed test log ended.
type Outcome int

const (
	OutcomeTimeout Outcome = iota // budget exhausted before a summary appeared
	OutcomePassed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	default:
		return "timeout"
	}
}

// summaryPattern recognizes the run completion marker,
// e.g. "[PASSED] 12 test(s)." or "[ FAILED ] 3 test(s).".
var summaryPattern = regexp.MustCompile(`\[\s*(PASSED|FAILED)\s*\]\s+(\d+)\s+test`)

// Summary is a parsed completion marker.
type Summary struct {
	Outcome Outcome
	Tests   int
}

// AwaitSummary scans transport lines until the completion marker appears,
// each read bounded by what remains of timeout (zero or negative scans
// indefinitely). Running out of time yields OutcomeTimeout as a value, not
// an error, so callers can branch on "ran out of time" versus "got an
// answer".
func AwaitSummary(ctx context.Context, conn LineConn, timeout time.Duration) (Summary, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		var remaining time.Duration
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return Summary{Outcome: OutcomeTimeout}, nil
			}
		}

		line, err := conn.GetLine(ctx, remaining)
		if err != nil {
			if errors.Is(err, hilserial.ErrTimeout) {
				return Summary{Outcome: OutcomeTimeout}, nil
			}
			return Summary{}, err
		}

		groups := summaryPattern.FindStringSubmatch(line.Text)
		if groups == nil {
			continue
		}
		count, err := strconv.Atoi(groups[2])
		if err != nil {
			continue
		}
		if groups[1] == "PASSED" {
			return Summary{Outcome: OutcomePassed, Tests: count}, nil
		}
		return Summary{Outcome: OutcomeFailed, Tests: count}, nil
	}
}
