package driver

import (
	"errors"

	"github.com/clambin/humidifier-cycler/internal/mode"
)

var (
	// ErrInvalidMode is returned when a request names a mode outside the ring. No press is issued.
	ErrInvalidMode = mode.ErrInvalidMode
	// ErrPressExhausted is returned when a single step could not be confirmed within Policy.MaxAttempts.
	ErrPressExhausted = errors.New("press attempts exhausted")
	// ErrActuatorUnavailable wraps any error returned by the Presser.
	ErrActuatorUnavailable = errors.New("actuator unavailable")
	// ErrNotActuated is recorded when the Presser reports that the button was not pressed.
	ErrNotActuated = errors.New("button not actuated")
	// ErrPressDropped is recorded when a press landed too late to be accepted as part of the running sequence.
	ErrPressDropped = errors.New("press dropped by appliance")
	// ErrCanceled is returned when the context was canceled between press cycles.
	ErrCanceled = errors.New("walk canceled")
	// ErrWalkInProgress is returned by Resync while a walk is running.
	ErrWalkInProgress = errors.New("walk in progress")
)
