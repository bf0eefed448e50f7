// Package homeassistant presses the humidifier's button through a Home Assistant service call,
// e.g. a SwitchBot bot exposed as button.humidifier.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clambin/humidifier-cycler/internal/driver"
)

const DefaultService = "button.press"

type Config struct {
	URL         string        `mapstructure:"url" yaml:"url"`
	Token       string        `mapstructure:"token" yaml:"token"`
	Entity      string        `mapstructure:"entity" yaml:"entity"`
	Service     string        `mapstructure:"service" yaml:"service"`
	WakeService string        `mapstructure:"wakeService" yaml:"wakeService"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

var _ driver.Presser = &Presser{}
var _ driver.Waker = &Presser{}

// Presser calls a Home Assistant service for the configured entity.
type Presser struct {
	HTTPClient *http.Client
	cfg        Config
	logger     *slog.Logger
}

func New(cfg Config, rt http.RoundTripper, logger *slog.Logger) (*Presser, error) {
	if cfg.URL == "" || cfg.Entity == "" {
		return nil, fmt.Errorf("home assistant: url and entity are required")
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if _, _, err := splitService(cfg.Service); err != nil {
		return nil, err
	}
	if cfg.WakeService != "" {
		if _, _, err := splitService(cfg.WakeService); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if rt == nil {
		rt = http.DefaultTransport
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	return &Presser{
		HTTPClient: &http.Client{Transport: rt, Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Press calls the configured service. A rejected call (4xx) means the button was not actuated.
// Transport errors and server errors return driver.ErrActuatorUnavailable.
func (p *Presser) Press(ctx context.Context) (bool, error) {
	return p.call(ctx, p.cfg.Service)
}

// Wake calls the wake service, if one is configured. Otherwise, it performs a normal press.
func (p *Presser) Wake(ctx context.Context) (bool, error) {
	if p.cfg.WakeService == "" {
		return p.Press(ctx)
	}
	return p.call(ctx, p.cfg.WakeService)
}

func (p *Presser) call(ctx context.Context, service string) (bool, error) {
	domain, name, err := splitService(service)
	if err != nil {
		return false, err
	}
	body, err := json.Marshal(map[string]string{"entity_id": p.cfg.Entity})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/api/services/"+domain+"/"+name, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: %w", driver.ErrActuatorUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", driver.ErrActuatorUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("%w: %s: %s", driver.ErrActuatorUnavailable, resp.Status, bytes.TrimSpace(respBody))
	case resp.StatusCode >= http.StatusBadRequest:
		p.logger.Warn("service call rejected", "service", service, "entity", p.cfg.Entity, "status", resp.Status, "body", string(bytes.TrimSpace(respBody)))
		return false, nil
	}
	p.logger.Debug("service called", "service", service, "entity", p.cfg.Entity)
	return true, nil
}

func splitService(service string) (string, string, error) {
	domain, name, ok := strings.Cut(service, ".")
	if !ok || domain == "" || name == "" {
		return "", "", fmt.Errorf("home assistant: invalid service %q", service)
	}
	return domain, name, nil
}
