package selector_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/clambin/humidifier-cycler/internal/mode"
	"github.com/clambin/humidifier-cycler/internal/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHumidity(t *testing.T) {
	tests := []struct {
		humidity float64
		want     mode.Mode
		wantErr  assert.ErrorAssertionFunc
	}{
		{humidity: 0, want: mode.Auto, wantErr: assert.NoError},
		{humidity: 0.1, want: mode.Sleep, wantErr: assert.NoError},
		{humidity: 25, want: mode.Sleep, wantErr: assert.NoError},
		{humidity: 25.5, want: mode.Normal, wantErr: assert.NoError},
		{humidity: 50, want: mode.Normal, wantErr: assert.NoError},
		{humidity: 75, want: mode.Normal, wantErr: assert.NoError},
		{humidity: 75.000001, want: mode.Boost, wantErr: assert.NoError},
		{humidity: 75.5, want: mode.Boost, wantErr: assert.NoError},
		{humidity: 100, want: mode.Boost, wantErr: assert.NoError},
		{humidity: -1, wantErr: assert.Error},
		{humidity: 100.5, wantErr: assert.Error},
		{humidity: math.NaN(), wantErr: assert.Error},
		{humidity: math.Inf(1), wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.humidity, 'f', -1, 64), func(t *testing.T) {
			m, err := selector.FromHumidity(tt.humidity)
			tt.wantErr(t, err)
			if err != nil {
				assert.ErrorIs(t, err, selector.ErrOutOfRange)
				return
			}
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestHumidity(t *testing.T) {
	for _, m := range mode.Modes() {
		t.Run(m.String(), func(t *testing.T) {
			humidity, ok := selector.Humidity(m)
			if m == mode.Away {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			got, err := selector.FromHumidity(humidity)
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
}
