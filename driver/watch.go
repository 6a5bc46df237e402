package driver

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/rigtools/hilserial"
)

// Match is the successful result of a pattern watch.
type Match struct {
	Line   hilserial.Line // the line that matched
	Groups []string       // full match followed by capture groups
}

// Watch races three concurrent roles over one transport: a matcher reading
// lines until Pattern matches (the primary), an optional agitator that
// periodically writes a disruption string to provoke output, and an optional
// heartbeat emitting a progress signal. When the matcher wins, the other
// roles are cancelled and awaited before Run returns.
type Watch struct {
	Conn    LineConn
	Pattern *regexp.Regexp

	Agitate      string        // disruption string; empty disables the agitator
	AgitateEvery time.Duration // defaults to 5s when Agitate is set

	OnBeat    func(elapsed time.Duration) // optional heartbeat callback
	BeatEvery time.Duration               // defaults to 10s when OnBeat is set

	Timeout time.Duration // overall deadline; zero runs indefinitely
	Logger  *zap.Logger
}

// Run executes the watch and returns the match. An exhausted deadline fails
// with ErrTimeout.
func (w *Watch) Run(ctx context.Context) (*Match, error) {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// Everything spawned here dies with this scope, including the matcher
	// on the timeout path.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()

	matcher := hilserial.Spawn(wctx, "matcher", func(ctx context.Context) (any, error) {
		for {
			line, err := w.Conn.GetLine(ctx, 0)
			if err != nil {
				return nil, err
			}
			if groups := w.Pattern.FindStringSubmatch(line.Text); groups != nil {
				log.Debug("pattern matched",
					zap.String("line", line.Text),
					zap.Duration("at", line.At))
				return &Match{Line: line, Groups: groups}, nil
			}
		}
	})

	var secondaries []*hilserial.Task
	if w.Agitate != "" {
		interval := w.AgitateEvery
		if interval <= 0 {
			interval = 5 * time.Second
		}
		secondaries = append(secondaries, hilserial.Spawn(wctx, "agitator", func(ctx context.Context) (any, error) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-ticker.C:
					if _, err := w.Conn.PutLine(ctx, w.Agitate, interval); err != nil {
						return nil, err
					}
					log.Debug("agitated", zap.String("text", w.Agitate))
				}
			}
		}))
	}
	if w.OnBeat != nil {
		interval := w.BeatEvery
		if interval <= 0 {
			interval = 10 * time.Second
		}
		secondaries = append(secondaries, hilserial.Spawn(wctx, "heartbeat", func(ctx context.Context) (any, error) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-ticker.C:
					w.OnBeat(time.Since(started))
				}
			}
		}))
	}

	result, _, err := hilserial.Gate(matcher, w.Timeout, secondaries...)
	if err != nil {
		return nil, err
	}
	return result.(*Match), nil
}
