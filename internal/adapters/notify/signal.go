// Package notify holds the user-facing conflict notification.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// GaugeName is the Prometheus gauge mirroring the notification.
const GaugeName = "quotesync_conflict_notification_visible"

// Signal is the conflict notification shown to the user. It is visible
// while a conflict awaits resolution.
// Implements ports.ConflictNotifier.
type Signal struct {
	mu      sync.RWMutex
	visible bool
	since   time.Time

	gauge prometheus.Gauge
	now   func() time.Time
}

// NewSignal creates a hidden signal and registers its gauge with reg.
// A nil reg skips registration.
func NewSignal(reg prometheus.Registerer) (*Signal, error) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: GaugeName,
		Help: "1 while a sync conflict notification is shown, 0 otherwise.",
	})

	if reg != nil {
		if err := reg.Register(gauge); err != nil {
			return nil, err
		}
	}

	return &Signal{gauge: gauge, now: time.Now}, nil
}

// SetConflict shows or hides the notification. Repeated calls with the same
// value are no-ops.
func (s *Signal) SetConflict(ctx context.Context, visible bool) {
	s.mu.Lock()
	if s.visible == visible {
		s.mu.Unlock()
		return
	}

	s.visible = visible
	s.since = s.now()

	if visible {
		s.gauge.Set(1)
	} else {
		s.gauge.Set(0)
	}
	s.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "conflict notification changed", slog.Bool("visible", visible))
}

// Visible reports whether the notification is shown.
func (s *Signal) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.visible
}

// Since returns when the notification last changed visibility; zero if it
// never has.
func (s *Signal) Since() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.since
}
