package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clambin/humidifier-cycler/internal/api"
	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/health"
	"github.com/clambin/humidifier-cycler/internal/humidifier"
	"github.com/clambin/humidifier-cycler/internal/metrics"
	"github.com/clambin/humidifier-cycler/internal/notifier"
	"github.com/clambin/humidifier-cycler/internal/presser/homeassistant"
	"github.com/clambin/humidifier-cycler/internal/presser/mqtt"
	"github.com/clambin/humidifier-cycler/internal/recorder"
	"github.com/clambin/humidifier-cycler/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
)

// app holds the wired components of a humidifier.
type app struct {
	humidifier *humidifier.Humidifier
	driver     *driver.Driver
	health     *health.Health
	closers    []func()
	logger     *slog.Logger
}

func newApp(ctx context.Context, v *viper.Viper, r prometheus.Registerer, l *slog.Logger) (*app, error) {
	a := app{logger: l}
	var ok bool
	defer func() {
		if !ok {
			a.close()
		}
	}()

	name := v.GetString("name")
	class, err := humidifier.ParseDeviceClass(v.GetString("type"))
	if err != nil {
		return nil, err
	}

	s, err := a.newStore(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	target, initial := humidifier.Restore(ctx, s, l.With("component", "store"))

	p, err := a.newPresser(v, r, l.With("component", "presser"))
	if err != nil {
		return nil, fmt.Errorf("presser: %w", err)
	}

	m := metrics.New("cycler", prometheus.Labels{"name": name})
	m.SetMode(initial)
	if err = r.Register(m); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	a.health = health.New(nil, l.With("component", "health"))
	observers := driver.Observers{m, a.health, a.newNotifier(v, name, l)}
	if v.GetString("influxdb.url") != "" {
		rec, closer, err := recorder.Connect(ctx, recorder.Config{
			URL:    v.GetString("influxdb.url"),
			Token:  v.GetString("influxdb.token"),
			Org:    v.GetString("influxdb.org"),
			Bucket: v.GetString("influxdb.bucket"),
		}, name, l.With("component", "recorder"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer)
		observers = append(observers, rec)
	}

	a.driver, err = driver.New(p, initial, policyFromConfig(v), l.With("component", "driver"), driver.WithObserver(observers))
	if err != nil {
		return nil, err
	}
	a.health.StateProvider = a.driver
	a.humidifier = humidifier.New(name, class, target, a.driver, s, l.With("component", "humidifier"))
	ok = true
	return &a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) handler() http.Handler {
	m := api.New(a.humidifier, a.logger.With("component", "api")).Handler()
	m.Handle("GET /health", a.health)
	return m
}

func policyFromConfig(v *viper.Viper) driver.Policy {
	return driver.Policy{
		FastRepeat:   v.GetDuration("policy.fastRepeat"),
		RestartAfter: v.GetDuration("policy.restartAfter"),
		Settle:       v.GetDuration("policy.settle"),
		WakeSettle:   v.GetDuration("policy.wakeSettle"),
		MaxAttempts:  v.GetInt("policy.maxAttempts"),
	}
}

func (a *app) newStore(ctx context.Context, v *viper.Viper) (humidifier.Store, error) {
	path := v.GetString("store.path")
	switch t := v.GetString("store.type"); t {
	case "file":
		return store.File{Path: path}, nil
	case "sqlite":
		s, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	default:
		return nil, fmt.Errorf("invalid store type %q", t)
	}
}

func (a *app) newPresser(v *viper.Viper, r prometheus.Registerer, l *slog.Logger) (driver.Presser, error) {
	switch t := v.GetString("presser.type"); t {
	case "homeassistant":
		rt, err := instrumentedTransport(r, http.DefaultTransport)
		if err != nil {
			return nil, err
		}
		p, err := homeassistant.New(homeassistant.Config{
			URL:         v.GetString("presser.homeassistant.url"),
			Token:       v.GetString("presser.homeassistant.token"),
			Entity:      v.GetString("presser.homeassistant.entity"),
			Service:     v.GetString("presser.homeassistant.service"),
			WakeService: v.GetString("presser.homeassistant.wakeService"),
			Timeout:     v.GetDuration("presser.homeassistant.timeout"),
		}, rt, l)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mqtt":
		qos := v.GetInt("presser.mqtt.qos")
		if qos < 0 || qos > 2 {
			return nil, fmt.Errorf("mqtt: invalid qos %d", qos)
		}
		p, err := mqtt.Connect(mqtt.Config{
			Broker:      v.GetString("presser.mqtt.broker"),
			ClientID:    v.GetString("presser.mqtt.clientID"),
			Username:    v.GetString("presser.mqtt.username"),
			Password:    v.GetString("presser.mqtt.password"),
			Topic:       v.GetString("presser.mqtt.topic"),
			Payload:     v.GetString("presser.mqtt.payload"),
			WakePayload: v.GetString("presser.mqtt.wakePayload"),
			QoS:         byte(qos),
			Timeout:     v.GetDuration("presser.mqtt.timeout"),
		}, l)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	default:
		return nil, fmt.Errorf("invalid presser type %q", t)
	}
}

func (a *app) newNotifier(v *viper.Viper, name string, l *slog.Logger) notifier.Observer {
	notifiers := notifier.Notifiers{notifier.SLogNotifier{Logger: l.With("component", "notifier")}}
	if token := v.GetString("slack.token"); token != "" {
		notifiers = append(notifiers, &notifier.SlackNotifier{
			Logger:      l.With("component", "slack"),
			SlackSender: slack.New(token),
			Channel:     v.GetString("slack.channel"),
		})
	}
	return notifier.Observer{Name: name, Notifier: notifiers}
}

func instrumentedTransport(r prometheus.Registerer, next http.RoundTripper) (http.RoundTripper, error) {
	requestCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cycler",
		Subsystem: "presser",
		Name:      "http_requests_total",
		Help:      "total number of http requests",
	},
		[]string{"code", "method"},
	)
	requestDuration := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "cycler",
		Subsystem: "presser",
		Name:      "http_request_duration_seconds",
		Help:      "duration of http requests",
	},
		[]string{"code", "method"},
	)
	for _, c := range []prometheus.Collector{requestCounter, requestDuration} {
		if err := r.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	return promhttp.InstrumentRoundTripperCounter(requestCounter,
		promhttp.InstrumentRoundTripperDuration(requestDuration, next),
	), nil
}
