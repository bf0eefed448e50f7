package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/clambin/humidifier-cycler/internal/driver"
)

type StateProvider interface {
	State() driver.State
}

// Health reports whether the driver could complete its last walk. It registers as a driver.Observer.
type Health struct {
	StateProvider
	logger   *slog.Logger
	lastWalk *driver.WalkEvent
	walkedAt time.Time
	lock     sync.RWMutex
}

type report struct {
	State    driver.State `json:"state"`
	Healthy  bool         `json:"healthy"`
	LastWalk *walkReport  `json:"lastWalk,omitempty"`
}

type walkReport struct {
	At       time.Time     `json:"at"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Target   string        `json:"target"`
	Presses  int           `json:"presses"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"err,omitempty"`
}

func New(p StateProvider, logger *slog.Logger) *Health {
	return &Health{
		StateProvider: p,
		logger:        logger,
	}
}

func (h *Health) PressAttempted(driver.PressEvent) {}

func (h *Health) WalkCompleted(ev driver.WalkEvent) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.lastWalk = &ev
	h.walkedAt = time.Now()
	if ev.Err != nil {
		h.logger.Debug("walk failed. reporting unhealthy", "err", ev.Err)
	}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	r := report{State: h.State(), Healthy: true}
	if h.lastWalk != nil {
		r.LastWalk = &walkReport{
			At:       h.walkedAt,
			From:     h.lastWalk.From.String(),
			To:       h.lastWalk.To.String(),
			Target:   h.lastWalk.Target.String(),
			Presses:  h.lastWalk.Presses,
			Duration: h.lastWalk.Duration,
		}
		if h.lastWalk.Err != nil {
			r.Healthy = false
			r.LastWalk.Err = h.lastWalk.Err.Error()
		}
	}
	h.lock.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !r.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
