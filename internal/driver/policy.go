package driver

import (
	"errors"
	"fmt"
	"time"
)

// Policy holds the timing constants of the appliance's button.
//
// Presses that follow each other within FastRepeat are treated as one sequence. Once FastRepeat has lapsed,
// the next press waits until Settle has passed since the previous one, so the appliance accepts it as a new
// advance command. A press that starts inside FastRepeat, but only completes more than RestartAfter after the
// previous press, is considered dropped and is retried. The press that wakes the appliance from Away is
// followed by an idle period of WakeSettle.
type Policy struct {
	FastRepeat   time.Duration `mapstructure:"fastRepeat" yaml:"fastRepeat"`
	RestartAfter time.Duration `mapstructure:"restartAfter" yaml:"restartAfter"`
	Settle       time.Duration `mapstructure:"settle" yaml:"settle"`
	WakeSettle   time.Duration `mapstructure:"wakeSettle" yaml:"wakeSettle"`
	MaxAttempts  int           `mapstructure:"maxAttempts" yaml:"maxAttempts"`
}

func DefaultPolicy() Policy {
	return Policy{
		FastRepeat:   2500 * time.Millisecond,
		RestartAfter: 5100 * time.Millisecond,
		Settle:       5500 * time.Millisecond,
		WakeSettle:   7 * time.Second,
		MaxAttempts:  5,
	}
}

var errInvalidPolicy = errors.New("invalid policy")

func (p Policy) Validate() error {
	switch {
	case p.FastRepeat <= 0 || p.RestartAfter <= 0 || p.Settle <= 0 || p.WakeSettle <= 0:
		return fmt.Errorf("%w: all windows must be positive", errInvalidPolicy)
	case p.FastRepeat >= p.Settle:
		return fmt.Errorf("%w: fastRepeat (%s) must be shorter than settle (%s)", errInvalidPolicy, p.FastRepeat, p.Settle)
	case p.RestartAfter <= p.FastRepeat:
		return fmt.Errorf("%w: restartAfter (%s) must be longer than fastRepeat (%s)", errInvalidPolicy, p.RestartAfter, p.FastRepeat)
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: maxAttempts must be at least 1", errInvalidPolicy)
	}
	return nil
}
