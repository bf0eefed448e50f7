// Package recorder writes every press attempt and walk to InfluxDB, so desyncs between the driver's belief and
// the appliance can be analysed afterwards.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/clambin/humidifier-cycler/internal/driver"
)

type Config struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Token  string `mapstructure:"token" yaml:"token"`
	Org    string `mapstructure:"org" yaml:"org"`
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
}

// Writer queues points for writing. influxdb2's non-blocking api.WriteAPI implements it.
type Writer interface {
	WritePoint(point *write.Point)
}

var _ driver.Observer = &Recorder{}

type Recorder struct {
	Writer
	Device string
	now    func() time.Time
}

func New(w Writer, device string) *Recorder {
	return &Recorder{Writer: w, Device: device, now: time.Now}
}

// Connect creates a Recorder writing to the configured bucket. The returned function flushes pending points and
// closes the connection.
func Connect(ctx context.Context, cfg Config, device string, logger *slog.Logger) (*Recorder, func(), error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, nil, errors.New("influxdb: url, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if ok, err := client.Ping(ctx); err != nil || !ok {
		client.Close()
		if err == nil {
			err = errors.New("server not healthy")
		}
		return nil, nil, fmt.Errorf("influxdb: ping %s: %w", cfg.URL, err)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("failed to write to influxdb", "err", err)
		}
	}()

	closer := func() {
		writeAPI.Flush()
		client.Close()
	}
	return New(writeAPI, device), closer, nil
}

func (r *Recorder) PressAttempted(e driver.PressEvent) {
	fields := map[string]interface{}{
		"attempt":         e.Attempt,
		"elapsed_seconds": e.Elapsed.Seconds(),
		"waited_seconds":  e.Waited.Seconds(),
		"landed":          e.Landed,
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	r.WritePoint(write.NewPoint(
		"button_press",
		map[string]string{
			"device": r.Device,
			"from":   e.From.String(),
			"to":     e.To.String(),
			"wake":   fmt.Sprint(e.Wake),
		},
		fields,
		r.now(),
	))
}

func (r *Recorder) WalkCompleted(e driver.WalkEvent) {
	fields := map[string]interface{}{
		"presses":          e.Presses,
		"duration_seconds": e.Duration.Seconds(),
		"success":          e.Err == nil,
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	r.WritePoint(write.NewPoint(
		"walk",
		map[string]string{
			"device": r.Device,
			"from":   e.From.String(),
			"to":     e.To.String(),
			"target": e.Target.String(),
		},
		fields,
		r.now(),
	))
}
