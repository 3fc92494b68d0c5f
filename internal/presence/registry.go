package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// Registry owns one viewer session for the process lifetime: it upserts the
// session on startup and refreshes only the heartbeat timestamp on a fixed
// interval. Store failures are logged and retried on the next beat, never
// fatal.
type Registry struct {
	store    Store
	session  domain.Session
	interval time.Duration
	clk      clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRegistry generates a fresh session identifier (unique to this process,
// not persisted across restarts) and builds the registry around it.
func NewRegistry(store Store, userAgent string, permission domain.PermissionState,
	interval time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		store: store,
		session: domain.Session{
			ID:                     uuid.NewString(),
			UserAgent:              userAgent,
			LastSeen:               clk.Now().UTC(),
			NotificationPermission: permission,
		},
		interval: interval,
		clk:      clk,
		logger:   logger,
		metrics:  metrics,
	}
}

// SessionID returns this process's session identifier.
func (r *Registry) SessionID() string {
	return r.session.ID
}

// Run registers the session and heartbeats until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	if err := r.store.UpsertSession(ctx, r.session); err != nil {
		r.logger.Warn("session registration failed", "session_id", r.session.ID, "error", err)
	} else {
		r.logger.Info("session registered", "session_id", r.session.ID)
	}

	ticker := r.clk.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("presence heartbeat stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			r.beat(ctx)
		}
	}
}

func (r *Registry) beat(ctx context.Context) {
	now := r.clk.Now().UTC()
	if err := r.store.TouchSession(ctx, r.session.ID, now); err != nil {
		r.logger.Warn("heartbeat failed", "session_id", r.session.ID, "error", err)
		return
	}
	r.metrics.HeartbeatsTotal.Inc()
}

// ActiveCount reads the full session collection and counts entries with a
// heartbeat newer than the liveness threshold, updating the gauge.
func (r *Registry) ActiveCount(ctx context.Context) (int, error) {
	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	n := CountActive(sessions, r.clk.Now().UTC())
	r.metrics.ActiveSessions.Set(float64(n))
	return n, nil
}
