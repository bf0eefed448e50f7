// Package notifier informs the user about walks that completed or failed.
package notifier

import (
	"fmt"
	"time"

	"github.com/clambin/humidifier-cycler/internal/driver"
)

type Notifier interface {
	Notify(Message)
}

type Message struct {
	Title  string
	Text   string
	Failed bool
}

type Notifiers []Notifier

func (n Notifiers) Notify(msg Message) {
	for _, l := range n {
		l.Notify(msg)
	}
}

// Observer sends a Message to its Notifier for every walk that pressed the button or failed.
type Observer struct {
	Name     string
	Notifier Notifier
}

var _ driver.Observer = Observer{}

func (o Observer) PressAttempted(driver.PressEvent) {}

func (o Observer) WalkCompleted(e driver.WalkEvent) {
	if e.Presses == 0 && e.Err == nil {
		return
	}
	o.Notifier.Notify(buildMessage(o.Name, e))
}

func buildMessage(name string, e driver.WalkEvent) Message {
	if e.Err != nil {
		return Message{
			Title:  fmt.Sprintf("%s: failed to switch to %s (stuck in %s)", name, e.Target, e.To),
			Text:   e.Err.Error(),
			Failed: true,
		}
	}
	return Message{
		Title: fmt.Sprintf("%s: switched from %s to %s", name, e.From, e.To),
		Text:  fmt.Sprintf("%d presses in %s", e.Presses, e.Duration.Round(time.Second)),
	}
}
