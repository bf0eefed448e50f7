// Package mode models the operating modes of the humidifier and the fixed order in which
// its cycle button steps through them.
package mode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned for any value outside the set of known modes.
var ErrInvalidMode = errors.New("invalid mode")

type Mode int

const (
	Auto Mode = iota
	Sleep
	Normal
	Boost
	Away
)

var modeNames = []string{
	"auto",
	"sleep",
	"normal",
	"boost",
	"away",
}

func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return "unknown"
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= 0 && int(m) < len(modeNames)
}

// Next returns the mode the appliance moves to when its button is pressed once.
// The modes form a single cycle: auto → sleep → normal → boost → away → auto.
// Next panics on an invalid mode.
func Next(m Mode) Mode {
	if !m.Valid() {
		panic(fmt.Sprintf("mode: Next called with invalid mode %d", int(m)))
	}
	return (m + 1) % Mode(len(modeNames))
}

// Distance returns how many presses it takes to go from one mode to another.
func Distance(from, to Mode) int {
	n := len(modeNames)
	return ((int(to)-int(from))%n + n) % n
}

// Modes returns all modes, in ring order.
func Modes() []Mode {
	modes := make([]Mode, len(modeNames))
	for i := range modes {
		modes[i] = Mode(i)
	}
	return modes
}

// Parse returns the Mode for the given name. Names are case-insensitive and may carry a "MODE_" prefix.
func Parse(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "mode_")
	for i, modeName := range modeNames {
		if name == modeName {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err == nil {
		*m = parsed
	}
	return err
}
