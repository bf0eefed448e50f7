// Package driver moves a humidifier to a requested mode using nothing but its cycle button.
//
// The appliance only advances to the next mode of its ring when the button is pressed. A Driver keeps track of
// the mode it believes the appliance is in and, for every request, presses the button as many times as needed,
// honouring the appliance's timing windows and retrying presses that did not land.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clambin/humidifier-cycler/internal/mode"
)

// A Presser presses the appliance's button once. It returns false if the button was not actuated.
// Any error is treated as a failed attempt.
type Presser interface {
	Press(ctx context.Context) (bool, error)
}

// A Waker is a Presser with a dedicated press to bring the appliance out of Away mode.
type Waker interface {
	Wake(ctx context.Context) (bool, error)
}

// PresserFunc adapts a function to a Presser.
type PresserFunc func(ctx context.Context) (bool, error)

func (f PresserFunc) Press(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Outcome tells the caller of RequestMode what happened to its request.
type Outcome int

const (
	// Completed means the caller ran the walk and the appliance reached the desired mode (unless an error was returned).
	Completed Outcome = iota
	// Merged means another walk was already running and will move the appliance to the requested mode instead.
	Merged
)

func (o Outcome) String() string {
	if o == Merged {
		return "merged"
	}
	return "completed"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// State is a snapshot of the Driver.
type State struct {
	Current    mode.Mode `json:"current"`
	Desired    mode.Mode `json:"desired"`
	InProgress bool      `json:"inProgress"`
	LastPress  time.Time `json:"lastPress,omitzero"`
}

func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("current", s.Current.String()),
		slog.String("desired", s.Desired.String()),
		slog.Bool("inProgress", s.InProgress),
	)
}

// A Driver owns the belief about the appliance's mode and serializes all walks against it.
// Only one walk runs at a time: requests arriving during a walk update its target.
type Driver struct {
	presser  Presser
	policy   Policy
	clock    Clock
	observer Observer
	logger   *slog.Logger

	lock        sync.Mutex
	current     mode.Mode
	desired     mode.Mode
	inProgress  bool
	lastPress   time.Time
	lastWasWake bool
}

type Option func(*Driver)

// WithClock overrides the system clock.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithObserver registers an Observer for press and walk events.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// New returns a Driver that believes the appliance is in the initial mode.
func New(presser Presser, initial mode.Mode, policy Policy, logger *slog.Logger, options ...Option) (*Driver, error) {
	if !initial.Valid() {
		return nil, fmt.Errorf("initial mode: %w: %d", ErrInvalidMode, int(initial))
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	d := Driver{
		presser:  presser,
		policy:   policy,
		clock:    systemClock{},
		observer: Observers{},
		logger:   logger,
		current:  initial,
		desired:  initial,
	}
	for _, option := range options {
		option(&d)
	}
	return &d, nil
}

// State returns a snapshot of the driver's state.
func (d *Driver) State() State {
	d.lock.Lock()
	defer d.lock.Unlock()
	return State{
		Current:    d.current,
		Desired:    d.desired,
		InProgress: d.inProgress,
		LastPress:  d.lastPress,
	}
}

// Policy returns the timing policy of the driver.
func (d *Driver) Policy() Policy {
	return d.policy
}

// RequestMode moves the appliance to the target mode. If no walk is running, RequestMode runs one and blocks
// until it ends. Otherwise, the running walk adopts the new target and RequestMode returns Merged immediately.
//
// If a step cannot be confirmed within Policy.MaxAttempts, the walk stops and returns ErrPressExhausted. The
// driver's current mode then reflects the last press that landed.
func (d *Driver) RequestMode(ctx context.Context, target mode.Mode) (Outcome, error) {
	if !target.Valid() {
		return Completed, fmt.Errorf("%w: %d", ErrInvalidMode, int(target))
	}

	d.lock.Lock()
	d.desired = target
	if d.inProgress {
		d.lock.Unlock()
		d.logger.Debug("walk in progress. target merged", "target", target)
		return Merged, nil
	}
	d.inProgress = true
	from := d.current
	d.lock.Unlock()

	released := false
	defer func() {
		if !released {
			d.release()
		}
	}()

	start := d.clock.Now()
	d.logger.Debug("walk started", "from", from, "target", target)
	presses, final, err := d.walk(ctx)
	released = true

	d.observer.WalkCompleted(WalkEvent{
		From:     from,
		To:       final.Current,
		Target:   final.Desired,
		Presses:  presses,
		Duration: d.clock.Now().Sub(start),
		Err:      err,
	})
	if err != nil {
		d.logger.Error("walk failed", "from", from, "reached", final.Current, "target", final.Desired, "presses", presses, "err", err)
	} else {
		d.logger.Info("walk completed", "from", from, "to", final.Current, "presses", presses)
	}
	return Completed, err
}

// Resync forces the driver's belief to a mode confirmed by other means, e.g. by looking at the appliance.
func (d *Driver) Resync(m mode.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.inProgress {
		return ErrWalkInProgress
	}
	d.logger.Info("mode resynced", "from", d.current, "to", m)
	d.current = m
	d.desired = m
	return nil
}

// release clears inProgress if walk did not return, e.g. because the Presser panicked.
func (d *Driver) release() {
	d.lock.Lock()
	d.finish()
	d.lock.Unlock()
}

// walk presses the button until the current mode matches the desired one. The desired mode is re-read after
// every step, so targets merged during the walk are honoured. On every exit, walk clears inProgress in the same
// critical section that ends the walk and returns the driver's state at that point.
func (d *Driver) walk(ctx context.Context) (int, State, error) {
	var presses int
	for {
		d.lock.Lock()
		current, desired := d.current, d.desired
		if current == desired {
			final := d.finish()
			d.lock.Unlock()
			return presses, final, nil
		}
		d.lock.Unlock()

		err := ctx.Err()
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrCanceled, err)
		} else {
			var n int
			n, err = d.step(ctx, current)
			presses += n
		}
		if err != nil {
			d.lock.Lock()
			final := d.finish()
			d.lock.Unlock()
			return presses, final, err
		}
	}
}

// finish ends the running walk. The caller must hold the lock.
func (d *Driver) finish() State {
	d.inProgress = false
	return State{
		Current:    d.current,
		Desired:    d.desired,
		InProgress: false,
		LastPress:  d.lastPress,
	}
}

// step advances the appliance by one mode, retrying up to Policy.MaxAttempts times.
func (d *Driver) step(ctx context.Context, from mode.Mode) (int, error) {
	to := mode.Next(from)
	wake := from == mode.Away

	var lastErr error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return attempt - 1, fmt.Errorf("%w: %w", ErrCanceled, err)
			}
		}

		waited, fast, err := d.waitForWindow(ctx, wake)
		if err != nil {
			return attempt - 1, fmt.Errorf("%w: %w", ErrCanceled, err)
		}

		previous := d.State().LastPress
		actuated, err := d.press(ctx, wake)
		now := d.clock.Now()

		d.lock.Lock()
		d.lastPress = now
		d.lastWasWake = wake
		d.lock.Unlock()

		var elapsed time.Duration
		if !previous.IsZero() {
			elapsed = now.Sub(previous)
		}

		switch {
		case err != nil:
			if !errors.Is(err, ErrActuatorUnavailable) {
				err = fmt.Errorf("%w: %w", ErrActuatorUnavailable, err)
			}
		case !actuated:
			err = ErrNotActuated
		case fast && elapsed > d.policy.RestartAfter:
			err = ErrPressDropped
		}
		landed := err == nil

		d.logger.Info("button pressed",
			"from", from,
			"to", to,
			"attempt", attempt,
			"elapsed", elapsed,
			"waited", waited,
			"wake", wake,
			"landed", landed,
			"err", err,
		)
		d.observer.PressAttempted(PressEvent{
			From:    from,
			To:      to,
			Attempt: attempt,
			Elapsed: elapsed,
			Waited:  waited,
			Wake:    wake,
			Landed:  landed,
			Err:     err,
		})

		if landed {
			d.lock.Lock()
			d.current = to
			d.lock.Unlock()
			return attempt, nil
		}
		lastErr = err
	}
	return d.policy.MaxAttempts, fmt.Errorf("%w: %s -> %s after %d attempts: %w", ErrPressExhausted, from, to, d.policy.MaxAttempts, lastErr)
}

// waitForWindow sleeps until the appliance accepts the next press. It reports how long it waited and whether
// the press is a fast repeat of the previous one.
func (d *Driver) waitForWindow(ctx context.Context, wake bool) (time.Duration, bool, error) {
	d.lock.Lock()
	last, lastWasWake := d.lastPress, d.lastWasWake
	d.lock.Unlock()

	if last.IsZero() {
		return 0, false, nil
	}

	elapsed := d.clock.Now().Sub(last)
	if !wake && !lastWasWake && elapsed <= d.policy.FastRepeat {
		return 0, true, nil
	}

	required := d.policy.Settle
	if lastWasWake {
		required = d.policy.WakeSettle
	}
	if elapsed >= required {
		return 0, false, nil
	}
	wait := required - elapsed
	d.logger.Debug("waiting for appliance to settle", "elapsed", elapsed, "wait", wait)
	return wait, false, d.clock.Sleep(ctx, wait)
}

func (d *Driver) press(ctx context.Context, wake bool) (bool, error) {
	if wake {
		if w, ok := d.presser.(Waker); ok {
			return w.Wake(ctx)
		}
	}
	return d.presser.Press(ctx)
}
