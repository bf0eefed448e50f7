package recorder

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/mode"
)

type pointBuffer struct {
	points []*write.Point
}

func (b *pointBuffer) WritePoint(point *write.Point) {
	b.points = append(b.points, point)
}

func tags(p *write.Point) map[string]string {
	result := make(map[string]string)
	for _, tag := range p.TagList() {
		result[tag.Key] = tag.Value
	}
	return result
}

func fields(p *write.Point) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range p.FieldList() {
		result[field.Key] = field.Value
	}
	return result
}

func TestRecorder(t *testing.T) {
	var b pointBuffer
	ts := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	r := New(&b, "bedroom")
	r.now = func() time.Time { return ts }

	r.PressAttempted(driver.PressEvent{From: mode.Away, To: mode.Auto, Attempt: 2, Elapsed: 1500 * time.Millisecond, Wake: true, Err: driver.ErrNotActuated})
	r.WalkCompleted(driver.WalkEvent{From: mode.Away, To: mode.Auto, Target: mode.Auto, Presses: 2, Duration: 7 * time.Second})

	require.Len(t, b.points, 2)

	assert.Equal(t, "button_press", b.points[0].Name())
	assert.Equal(t, ts, b.points[0].Time())
	assert.Equal(t, map[string]string{"device": "bedroom", "from": "away", "to": "auto", "wake": "true"}, tags(b.points[0]))
	f := fields(b.points[0])
	assert.Equal(t, int64(2), f["attempt"])
	assert.Equal(t, 1.5, f["elapsed_seconds"])
	assert.Equal(t, false, f["landed"])
	assert.Equal(t, driver.ErrNotActuated.Error(), f["error"])

	assert.Equal(t, "walk", b.points[1].Name())
	assert.Equal(t, map[string]string{"device": "bedroom", "from": "away", "to": "auto", "target": "auto"}, tags(b.points[1]))
	f = fields(b.points[1])
	assert.Equal(t, int64(2), f["presses"])
	assert.Equal(t, true, f["success"])
	assert.NotContains(t, f, "error")
}

func TestRecorder_WalkFailed(t *testing.T) {
	var b pointBuffer
	r := New(&b, "bedroom")
	r.WalkCompleted(driver.WalkEvent{From: mode.Auto, To: mode.Auto, Target: mode.Boost, Presses: 5, Err: errors.New("exhausted")})

	require.Len(t, b.points, 1)
	f := fields(b.points[0])
	assert.Equal(t, false, f["success"])
	assert.Equal(t, "exhausted", f["error"])
}

func TestConnect_InvalidConfig(t *testing.T) {
	_, _, err := Connect(context.Background(), Config{URL: "http://localhost:8086"}, "bedroom", slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
