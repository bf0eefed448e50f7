package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Policy)
		wantErr assert.ErrorAssertionFunc
	}{
		{name: "default", modify: func(*Policy) {}, wantErr: assert.NoError},
		{name: "legacy windows", modify: func(p *Policy) { p.RestartAfter = 4800 * time.Millisecond; p.Settle = 5 * time.Second }, wantErr: assert.NoError},
		{name: "zero window", modify: func(p *Policy) { p.WakeSettle = 0 }, wantErr: assert.Error},
		{name: "fast repeat too long", modify: func(p *Policy) { p.FastRepeat = 6 * time.Second }, wantErr: assert.Error},
		{name: "restart inside fast repeat", modify: func(p *Policy) { p.RestartAfter = 2 * time.Second }, wantErr: assert.Error},
		{name: "no attempts", modify: func(p *Policy) { p.MaxAttempts = 0 }, wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.modify(&p)
			err := p.Validate()
			tt.wantErr(t, err)
			if err != nil {
				assert.ErrorIs(t, err, errInvalidPolicy)
			}
		})
	}
}

func TestSystemClock_Sleep(t *testing.T) {
	var c systemClock
	start := c.Now()
	assert.NoError(t, c.Sleep(t.Context(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, time.Hour), context.Canceled)
}
