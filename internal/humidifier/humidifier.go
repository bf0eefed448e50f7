// Package humidifier exposes the appliance as a humidifier: it can be switched on and off, and takes a target
// humidity, which it translates into the mode the Driver should move to.
package humidifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/mode"
	"github.com/clambin/humidifier-cycler/internal/selector"
)

// DefaultTarget is the target humidity used when none has been persisted.
const DefaultTarget = 50.0

type DeviceClass string

const (
	ClassHumidifier   DeviceClass = "humidifier"
	ClassDehumidifier DeviceClass = "dehumidifier"
)

func ParseDeviceClass(s string) (DeviceClass, error) {
	switch DeviceClass(s) {
	case ClassHumidifier, ClassDehumidifier:
		return DeviceClass(s), nil
	}
	return "", fmt.Errorf("invalid device type %q", s)
}

// Store persists the target humidity.
type Store interface {
	Load(ctx context.Context) (float64, bool, error)
	Save(ctx context.Context, target float64) error
}

// Driver moves the appliance to a mode.
type Driver interface {
	RequestMode(ctx context.Context, target mode.Mode) (driver.Outcome, error)
	Resync(m mode.Mode) error
	State() driver.State
}

// Status is the externally visible state of the humidifier.
type Status struct {
	Name           string      `json:"name"`
	DeviceClass    DeviceClass `json:"deviceClass"`
	On             bool        `json:"on"`
	Target         float64     `json:"target"`
	MinHumidity    float64     `json:"minHumidity"`
	MaxHumidity    float64     `json:"maxHumidity"`
	Mode           mode.Mode   `json:"mode"`
	DesiredMode    mode.Mode   `json:"desiredMode"`
	InProgress     bool        `json:"inProgress"`
	LastPress      time.Time   `json:"lastPress,omitzero"`
	AvailableModes []mode.Mode `json:"availableModes"`
}

type Humidifier struct {
	name   string
	class  DeviceClass
	driver Driver
	store  Store
	logger *slog.Logger
	lock   sync.Mutex
	target float64
}

// Restore reads the persisted target and determines the mode the appliance is assumed to be in at startup.
// Any failure is logged: Restore then falls back to DefaultTarget and mode.Auto. The resulting target is
// written back to the store.
func Restore(ctx context.Context, store Store, logger *slog.Logger) (float64, mode.Mode) {
	target, initial := DefaultTarget, mode.Auto

	stored, ok, err := store.Load(ctx)
	switch {
	case err != nil:
		logger.Error("failed to load persisted target. using default", "err", err, "target", target)
	case !ok:
		logger.Warn("no persisted target found. using default", "target", target)
	default:
		if m, err := selector.FromHumidity(stored); err != nil {
			logger.Warn("persisted target invalid. using default", "err", err, "target", target)
		} else {
			target, initial = stored, m
		}
	}

	if err = store.Save(ctx, target); err != nil {
		logger.Error("failed to save target", "err", err)
	}
	logger.Debug("restored", "target", target, "mode", initial)
	return target, initial
}

func New(name string, class DeviceClass, target float64, d Driver, store Store, logger *slog.Logger) *Humidifier {
	return &Humidifier{
		name:   name,
		class:  class,
		target: target,
		driver: d,
		store:  store,
		logger: logger,
	}
}

// IsOn reports whether the humidifier is, or is moving to, any mode other than Away.
func (h *Humidifier) IsOn() bool {
	return h.driver.State().Desired != mode.Away
}

func (h *Humidifier) Target() float64 {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.target
}

// SetHumidity records a new target humidity. If the humidifier is on, it moves the appliance to the matching mode.
func (h *Humidifier) SetHumidity(ctx context.Context, humidity float64) (driver.Outcome, error) {
	m, err := selector.FromHumidity(humidity)
	if err != nil {
		return driver.Completed, err
	}

	h.lock.Lock()
	h.target = humidity
	h.lock.Unlock()

	if err = h.store.Save(ctx, humidity); err != nil {
		h.logger.Error("failed to save target", "err", err)
	}

	if !h.IsOn() {
		h.logger.Debug("humidifier is off. target recorded", "target", humidity)
		return driver.Completed, nil
	}
	return h.driver.RequestMode(ctx, m)
}

// TurnOn moves the appliance to the mode matching the current target.
func (h *Humidifier) TurnOn(ctx context.Context) (driver.Outcome, error) {
	m, err := selector.FromHumidity(h.Target())
	if err != nil {
		return driver.Completed, err
	}
	return h.driver.RequestMode(ctx, m)
}

// TurnOff moves the appliance to Away.
func (h *Humidifier) TurnOff(ctx context.Context) (driver.Outcome, error) {
	return h.driver.RequestMode(ctx, mode.Away)
}

// SetMode moves the appliance to a specific mode, bypassing the target humidity.
func (h *Humidifier) SetMode(ctx context.Context, m mode.Mode) (driver.Outcome, error) {
	return h.driver.RequestMode(ctx, m)
}

// Resync tells the humidifier which mode the appliance is actually in.
func (h *Humidifier) Resync(m mode.Mode) error {
	return h.driver.Resync(m)
}

func (h *Humidifier) Status() Status {
	state := h.driver.State()
	return Status{
		Name:           h.name,
		DeviceClass:    h.class,
		On:             state.Desired != mode.Away,
		Target:         h.Target(),
		MinHumidity:    selector.MinHumidity,
		MaxHumidity:    selector.MaxHumidity,
		Mode:           state.Current,
		DesiredMode:    state.Desired,
		InProgress:     state.InProgress,
		LastPress:      state.LastPress,
		AvailableModes: mode.Modes(),
	}
}
