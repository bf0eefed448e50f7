// Package mqtt presses the humidifier's button by publishing a command on an MQTT topic,
// e.g. to a relay or a bot running Tasmota or zigbee2mqtt.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/clambin/humidifier-cycler/internal/driver"
)

type Config struct {
	Broker      string        `mapstructure:"broker" yaml:"broker"`
	ClientID    string        `mapstructure:"clientID" yaml:"clientID"`
	Username    string        `mapstructure:"username" yaml:"username"`
	Password    string        `mapstructure:"password" yaml:"password"`
	Topic       string        `mapstructure:"topic" yaml:"topic"`
	Payload     string        `mapstructure:"payload" yaml:"payload"`
	WakePayload string        `mapstructure:"wakePayload" yaml:"wakePayload"`
	QoS         byte          `mapstructure:"qos" yaml:"qos"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Client is the part of the paho client used by Presser.
type Client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

var errNotConnected = errors.New("not connected to broker")

var _ driver.Presser = &Presser{}
var _ driver.Waker = &Presser{}

type Presser struct {
	client Client
	cfg    Config
	logger *slog.Logger
}

// Connect connects to the broker and returns a Presser publishing through that connection.
func Connect(cfg Config, logger *slog.Logger) (*Presser, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt: broker and topic are required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "cycler"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("connection to broker lost", "err", err)
		}).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			logger.Debug("connected to broker", "broker", cfg.Broker)
		})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt: connect to %s: timeout after %s", cfg.Broker, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	return New(client, cfg, logger), nil
}

func New(client Client, cfg Config, logger *slog.Logger) *Presser {
	if cfg.Payload == "" {
		cfg.Payload = "PRESS"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Presser{client: client, cfg: cfg, logger: logger}
}

// Press publishes the press payload. If the broker does not acknowledge the message in time,
// the button is considered not actuated.
func (p *Presser) Press(ctx context.Context) (bool, error) {
	return p.publish(ctx, p.cfg.Payload)
}

// Wake publishes the wake payload, if one is configured. Otherwise, it performs a normal press.
func (p *Presser) Wake(ctx context.Context) (bool, error) {
	if p.cfg.WakePayload == "" {
		return p.Press(ctx)
	}
	return p.publish(ctx, p.cfg.WakePayload)
}

func (p *Presser) publish(ctx context.Context, payload string) (bool, error) {
	if !p.client.IsConnectionOpen() {
		return false, fmt.Errorf("%w: %w", driver.ErrActuatorUnavailable, errNotConnected)
	}
	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %w", driver.ErrActuatorUnavailable, ctx.Err())
	case <-token.Done():
	case <-time.After(p.cfg.Timeout):
		p.logger.Warn("publish not acknowledged", "topic", p.cfg.Topic, "timeout", p.cfg.Timeout)
		return false, nil
	}
	if err := token.Error(); err != nil {
		return false, fmt.Errorf("%w: %w", driver.ErrActuatorUnavailable, err)
	}
	p.logger.Debug("press published", "topic", p.cfg.Topic, "payload", payload)
	return true, nil
}

// Close disconnects from the broker.
func (p *Presser) Close() {
	p.client.Disconnect(250)
}
