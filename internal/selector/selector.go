// Package selector maps a requested humidity onto the mode that best approximates it.
package selector

import (
	"errors"
	"fmt"
	"math"

	"github.com/clambin/humidifier-cycler/internal/mode"
)

const (
	MinHumidity = 0
	MaxHumidity = 100
)

var ErrOutOfRange = errors.New("humidity out of range")

// FromHumidity returns the mode for a requested humidity:
//
//	0         auto
//	(0, 25]   sleep
//	(25, 75]  normal
//	(75, 100] boost
func FromHumidity(humidity float64) (mode.Mode, error) {
	switch {
	case math.IsNaN(humidity) || humidity < MinHumidity || humidity > MaxHumidity:
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, humidity)
	case humidity == 0:
		return mode.Auto, nil
	case humidity <= 25:
		return mode.Sleep, nil
	case humidity <= 75:
		return mode.Normal, nil
	default:
		return mode.Boost, nil
	}
}

// Humidity returns a humidity that maps back onto the mode. Away has no humidity.
func Humidity(m mode.Mode) (float64, bool) {
	switch m {
	case mode.Auto:
		return 0, true
	case mode.Sleep:
		return 25, true
	case mode.Normal:
		return 50, true
	case mode.Boost:
		return 100, true
	default:
		return 0, false
	}
}
