package hilserial

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Task is a spawned unit of concurrent work with deterministic cancellation.
// A Task completes exactly once; Value and Err are valid only after Done is
// closed.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	result any
	err    error
}

// Spawn starts fn in its own goroutine under a cancellable child context.
func Spawn(ctx context.Context, name string, fn func(context.Context) (any, error)) *Task {
	cctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		t.result, t.err = fn(cctx)
	}()
	return t
}

// Name returns the task's diagnostic name.
func (t *Task) Name() string { return t.name }

// Done is closed when the task has completed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel requests cancellation. It does not wait for completion.
func (t *Task) Cancel() { t.cancel() }

// Value returns the task's result. Valid only after Done is closed.
func (t *Task) Value() any { return t.result }

// Err returns the task's error. Valid only after Done is closed.
func (t *Task) Err() error { return t.err }

// Observe waits until primary completes, running any secondaries alongside
// it. Completed tasks accumulate in a done set; the wait ends when primary
// is in it or when timeout (zero or negative means unbounded) elapses, which
// fails with ErrTimeout. Still-pending secondaries are returned uncancelled.
func Observe(primary *Task, timeout time.Duration, secondaries ...*Task) ([]*Task, error) {
	return race(primary, timeout, secondaries, false)
}

// ObserveAssertNotDone waits like Observe but fails with ErrAssertion the
// instant any secondary completes before the primary does. Use it to assert
// a background activity stays alive while a short check runs.
func ObserveAssertNotDone(primary *Task, timeout time.Duration, secondaries ...*Task) ([]*Task, error) {
	return race(primary, timeout, secondaries, true)
}

// Gate waits like Observe, then cancels every still-pending secondary and
// awaits each cancellation before returning. The expected cancellation error
// is suppressed on the cancelled tasks; no gated activity survives the call.
// The returned error is ErrTimeout when primary never completed, otherwise
// primary's own error.
func Gate(primary *Task, timeout time.Duration, secondaries ...*Task) (any, []*Task, error) {
	pending, err := race(primary, timeout, secondaries, false)
	if err != nil {
		return nil, nil, err
	}

	cancelled := make([]*Task, 0, len(pending))
	for _, sec := range pending {
		sec.Cancel()
		<-sec.done
		if errors.Is(sec.err, context.Canceled) {
			sec.err = nil
		}
		cancelled = append(cancelled, sec)
	}

	return primary.result, cancelled, primary.err
}

// race implements the shared waiting algorithm: the working set starts as
// {primary} plus the secondaries, each first-completion wait is bounded by
// the remaining budget, and completed tasks move to the done set until the
// primary lands there.
func race(primary *Task, timeout time.Duration, secondaries []*Task, assertNotDone bool) ([]*Task, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	all := append([]*Task{primary}, secondaries...)
	completions := make(chan *Task, len(all))
	for _, tk := range all {
		go func(tk *Task) {
			<-tk.done
			completions <- tk
		}(tk)
	}

	done := make(map[*Task]bool, len(all))
	for {
		if done[primary] {
			// Fold in completions that raced with the primary's.
			for {
				select {
				case tk := <-completions:
					done[tk] = true
					continue
				default:
				}
				break
			}
			var pending []*Task
			for _, sec := range secondaries {
				if !done[sec] {
					pending = append(pending, sec)
				}
			}
			return pending, nil
		}

		select {
		case tk := <-completions:
			if assertNotDone && tk != primary {
				return nil, fmt.Errorf("task %q finished before %q: %w", tk.name, primary.name, ErrAssertion)
			}
			done[tk] = true
		case <-expired:
			return nil, fmt.Errorf("task %q not done within %s: %w", primary.name, timeout, ErrTimeout)
		}
	}
}
