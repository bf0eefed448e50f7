package homeassistant_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/presser/homeassistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresser_Press(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr error
	}{
		{name: "pressed", status: http.StatusOK, want: true},
		{name: "rejected", status: http.StatusBadRequest, want: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: driver.ErrActuatorUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/services/button/press", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				var body map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, map[string]string{"entity_id": "button.humidifier"}, body)
				w.WriteHeader(tt.status)
			}))
			defer s.Close()

			p, err := homeassistant.New(homeassistant.Config{URL: s.URL + "/", Token: "secret", Entity: "button.humidifier"}, nil, slog.New(slog.DiscardHandler))
			require.NoError(t, err)

			ok, err := p.Press(context.Background())
			assert.Equal(t, tt.want, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPresser_Press_Unreachable(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()

	p, err := homeassistant.New(homeassistant.Config{URL: url, Entity: "button.humidifier"}, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	_, err = p.Press(context.Background())
	assert.ErrorIs(t, err, driver.ErrActuatorUnavailable)
}

func TestPresser_Wake(t *testing.T) {
	var paths []string
	var calls atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		paths = append(paths, r.URL.Path)
	}))
	defer s.Close()

	p, err := homeassistant.New(homeassistant.Config{URL: s.URL, Entity: "switch.humidifier", Service: "switch.toggle", WakeService: "script.wake_humidifier"}, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ok, err := p.Wake(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Press(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"/api/services/script/wake_humidifier", "/api/services/switch/toggle"}, paths)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     homeassistant.Config
		wantErr assert.ErrorAssertionFunc
	}{
		{name: "valid", cfg: homeassistant.Config{URL: "http://ha:8123", Entity: "button.humidifier"}, wantErr: assert.NoError},
		{name: "missing url", cfg: homeassistant.Config{Entity: "button.humidifier"}, wantErr: assert.Error},
		{name: "missing entity", cfg: homeassistant.Config{URL: "http://ha:8123"}, wantErr: assert.Error},
		{name: "invalid service", cfg: homeassistant.Config{URL: "http://ha:8123", Entity: "button.humidifier", Service: "press"}, wantErr: assert.Error},
		{name: "invalid wake service", cfg: homeassistant.Config{URL: "http://ha:8123", Entity: "button.humidifier", WakeService: "wake."}, wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := homeassistant.New(tt.cfg, nil, slog.New(slog.DiscardHandler))
			tt.wantErr(t, err)
		})
	}
}
