// Package dispatch decides which newly-seen events and operator broadcasts
// become viewer-facing alerts, and routes them to the alert surface and the
// audio engine.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/audio"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// Auto-dismiss windows. Broadcasts keep requireInteraction semantics: the
// alert stays visible until dismissed or the window elapses.
const (
	localDismissAfter     = 15 * time.Second
	broadcastDismissAfter = 15 * time.Second
)

// SurfaceOptions mirror the platform alert surface's construction options.
type SurfaceOptions struct {
	Tag                string
	RequireInteraction bool
	Vibration          []int
	Silent             bool
}

// Handle is a raised alert. OnClick must bring the consuming application to
// the foreground; Close dismisses the alert.
type Handle interface {
	OnClick(func())
	Close()
}

// Surface is the OS-level alert surface. Implementations are supplied by the
// embedding presentation layer.
type Surface interface {
	Raise(ctx context.Context, msg domain.AlertMessage, opts SurfaceOptions) (Handle, error)
}

// AudioPlayer is the subset of the audio engine the dispatcher drives.
type AudioPlayer interface {
	PlayUrgent(ctx context.Context) audio.Outcome
	PlayBroadcast(ctx context.Context) audio.Outcome
}

// PermissionFunc reports the current alert-surface permission state. It is a
// function, not a snapshot, because the viewer can grant or revoke
// permission mid-session.
type PermissionFunc func() domain.PermissionState

// Foreground brings the consuming application to the foreground; wired to
// alert clicks.
type Foreground func()

// Dispatcher fans newly-seen urgent events and operator broadcasts out to
// the alert surface and the audio engine. At-most-once delivery per event
// identifier is guaranteed upstream by change detection, which only ever
// reports first appearances.
type Dispatcher struct {
	surface         Surface
	player          AudioPlayer
	permission      PermissionFunc
	foreground      Foreground
	viewerLang      string
	urgentThreshold float64
	clk             clockwork.Clock
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// New creates a Dispatcher. foreground may be nil when the platform has no
// foregrounding concept.
func New(surface Surface, player AudioPlayer, permission PermissionFunc, foreground Foreground,
	viewerLang string, urgentThreshold float64, clk clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		surface:         surface,
		player:          player,
		permission:      permission,
		foreground:      foreground,
		viewerLang:      viewerLang,
		urgentThreshold: urgentThreshold,
		clk:             clk,
		logger:          logger,
		metrics:         metrics,
	}
}

// DispatchDelta evaluates each newly-seen event and raises a local urgent
// alert for those above the urgent threshold, permission permitting. Errors
// from the surface are logged, never propagated; a failed alert must not
// disturb the polling loop.
func (d *Dispatcher) DispatchDelta(ctx context.Context, delta []domain.Earthquake) {
	for _, ev := range delta {
		if ev.Magnitude <= d.urgentThreshold {
			continue
		}
		if d.permission() != domain.PermissionGranted {
			d.metrics.AlertsSuppressed.WithLabelValues("permission").Inc()
			d.logger.Debug("urgent event suppressed, permission not granted", "event_id", ev.ID)
			continue
		}

		msg := domain.AlertMessage{
			Title:     fmt.Sprintf("M%.1f earthquake", ev.Magnitude),
			Body:      fmt.Sprintf("%s, depth %.0f km", ev.Place, ev.DepthKm),
			Language:  domain.LanguageAll,
			Origin:    domain.OriginLocalUrgent,
			Sound:     true,
			CreatedAt: d.clk.Now().UTC(),
		}

		d.raise(ctx, msg, SurfaceOptions{
			Tag:       ev.ID,
			Vibration: []int{200, 100, 200},
			Silent:    false,
		}, localDismissAfter)
		d.player.PlayUrgent(ctx)
		d.metrics.AlertsDispatched.WithLabelValues(domain.OriginLocalUrgent).Inc()
		d.logger.Info("urgent event alert dispatched",
			"event_id", ev.ID, "magnitude", ev.Magnitude, "place", ev.Place)
	}
}

// DispatchBroadcast routes an operator-originated broadcast through the same
// surface and audio path. A message whose language tag matches neither "all"
// nor the viewer's language is silently dropped, never queued.
func (d *Dispatcher) DispatchBroadcast(ctx context.Context, msg domain.AlertMessage) {
	if !msg.MatchesLanguage(d.viewerLang) {
		d.metrics.AlertsSuppressed.WithLabelValues("language").Inc()
		d.logger.Debug("broadcast dropped, language mismatch",
			"language", msg.Language, "viewer_language", d.viewerLang)
		return
	}
	if d.permission() != domain.PermissionGranted {
		d.metrics.AlertsSuppressed.WithLabelValues("permission").Inc()
		// Permission only gates the surface; a sound-flagged broadcast still
		// plays its tone.
		if msg.Sound {
			d.player.PlayBroadcast(ctx)
		}
		return
	}

	d.raise(ctx, msg, SurfaceOptions{
		Tag:                "operator-broadcast",
		RequireInteraction: true,
		Silent:             false,
	}, broadcastDismissAfter)
	if msg.Sound {
		d.player.PlayBroadcast(ctx)
	}
	d.metrics.AlertsDispatched.WithLabelValues(domain.OriginOperatorBroadcast).Inc()
	d.logger.Info("broadcast alert dispatched", "title", msg.Title, "language", msg.Language)
}

// raise puts the alert on the surface, wires click-to-foreground, and
// schedules the auto-dismiss.
func (d *Dispatcher) raise(ctx context.Context, msg domain.AlertMessage, opts SurfaceOptions, dismissAfter time.Duration) {
	handle, err := d.surface.Raise(ctx, msg, opts)
	if err != nil {
		d.logger.Warn("alert surface raise failed", "tag", opts.Tag, "error", err)
		return
	}
	if d.foreground != nil {
		handle.OnClick(d.foreground)
	}
	d.clk.AfterFunc(dismissAfter, handle.Close)
}
