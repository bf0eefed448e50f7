package driver

import (
	"time"

	"github.com/clambin/humidifier-cycler/internal/mode"
)

// An Observer is informed of every press attempt and of every completed walk.
// PressAttempted is called synchronously from the walk and must not block. WalkCompleted is called after the
// driver has released the walk: a slow observer delays the caller of RequestMode, not the next walk.
type Observer interface {
	PressAttempted(PressEvent)
	WalkCompleted(WalkEvent)
}

// PressEvent describes one press attempt.
type PressEvent struct {
	From    mode.Mode
	To      mode.Mode
	Attempt int
	// Elapsed is the time between the previous press and the completion of this one. Zero for the first press.
	Elapsed time.Duration
	Waited  time.Duration
	Wake    bool
	Landed  bool
	Err     error
}

// WalkEvent describes a walk that has ended, successfully or not.
type WalkEvent struct {
	From     mode.Mode
	To       mode.Mode
	Target   mode.Mode
	Presses  int
	Duration time.Duration
	Err      error
}

// Observers sends every event to each of its Observers.
type Observers []Observer

var _ Observer = Observers{}

func (o Observers) PressAttempted(e PressEvent) {
	for _, observer := range o {
		observer.PressAttempted(e)
	}
}

func (o Observers) WalkCompleted(e WalkEvent) {
	for _, observer := range o {
		observer.WalkCompleted(e)
	}
}
