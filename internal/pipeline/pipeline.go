// Package pipeline wires the poll loop, change detection, alert dispatch,
// and the optional export and realtime stages into one run loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/detect"
	"github.com/seismowatch/quake-alert-service/internal/dispatch"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/feed"
	"github.com/seismowatch/quake-alert-service/internal/observability"
	"github.com/seismowatch/quake-alert-service/internal/poller"
	"github.com/seismowatch/quake-alert-service/internal/realtime"
)

// Exporter publishes pipeline records to the export topic. Optional.
type Exporter interface {
	PublishEvents(ctx context.Context, events []domain.Earthquake) error
	PublishAlert(ctx context.Context, alert domain.AlertMessage) error
}

// Broadcaster is the realtime bridge surface the pipeline drives. Optional.
type Broadcaster interface {
	Subscribe(ctx context.Context) error
	State() realtime.ConnState
	Close()
}

// Status is the operational snapshot served on the status endpoint.
type Status struct {
	EventCount    int    `json:"event_count"`
	SeenCount     int    `json:"seen_count"`
	LastError     string `json:"last_error,omitempty"`
	RealtimeState string `json:"realtime_state"`
}

// Pipeline owns the poll loop and fans each cycle's newly-seen events out to
// dispatch and export. The poll loop is the single mutator of the detector,
// so no locking is needed around change detection.
type Pipeline struct {
	poller     *poller.Poller
	detector   *detect.Detector
	dispatcher *dispatch.Dispatcher
	exporter   Exporter
	bridge     Broadcaster
	logger     *slog.Logger
	metrics    *observability.Metrics

	ready     atomic.Bool
	seenCount atomic.Int64
}

// New assembles a Pipeline around the given fetcher. exporter and bridge may
// be nil when those stages are disabled.
func New(fetcher feed.Fetcher, pollInterval time.Duration, dispatcher *dispatch.Dispatcher,
	exporter Exporter, bridge Broadcaster, clk clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		detector:   detect.New(),
		dispatcher: dispatcher,
		exporter:   exporter,
		bridge:     bridge,
		logger:     logger,
		metrics:    metrics,
	}
	p.poller = poller.New(fetcher, pollInterval, p.handlePoll, clk, logger, metrics)
	return p
}

// Run drives the poll loop until the context is cancelled, then tears the
// realtime subscription down.
func (p *Pipeline) Run(ctx context.Context) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("pipeline starting")
	p.poller.Run(ctx)

	if p.bridge != nil {
		p.bridge.Close()
	}
	p.ready.Store(false)
	p.logger.Info("pipeline stopped")
}

// TriggerRefresh requests an immediate poll cycle.
func (p *Pipeline) TriggerRefresh() {
	p.poller.TriggerNow()
}

// SetAutoRefresh toggles interval polling.
func (p *Pipeline) SetAutoRefresh(enabled bool) {
	p.poller.SetAutoRefresh(enabled)
}

// HandleBroadcast routes an operator broadcast into the dispatch path and
// records it on the export topic. Wired as the realtime bridge's handler.
func (p *Pipeline) HandleBroadcast(ctx context.Context, msg domain.AlertMessage) {
	p.dispatcher.DispatchBroadcast(ctx, msg)
	if p.exporter != nil {
		if err := p.exporter.PublishAlert(ctx, msg); err != nil {
			p.logger.Error("broadcast export failed", "error", err)
		}
	}
}

// CheckReadiness reports whether at least one poll cycle has completed.
func (p *Pipeline) CheckReadiness(context.Context) error {
	if !p.ready.Load() {
		return errors.New("no poll cycle completed yet")
	}
	return nil
}

// Status reports the pipeline's operational snapshot.
func (p *Pipeline) Status() Status {
	events, lastErr := p.poller.Snapshot()
	s := Status{
		EventCount:    len(events),
		SeenCount:     int(p.seenCount.Load()),
		LastError:     lastErr,
		RealtimeState: realtime.StateDisconnected.String(),
	}
	if p.bridge != nil {
		s.RealtimeState = p.bridge.State().String()
	}
	return s
}

// handlePoll runs after every successful poll cycle, on the poll loop
// goroutine.
func (p *Pipeline) handlePoll(ctx context.Context, events []domain.Earthquake) {
	delta := p.detector.Diff(events)
	p.seenCount.Store(int64(p.detector.SeenCount()))
	p.metrics.DeltaEvents.Add(float64(len(delta)))
	p.metrics.SeenSetSize.Set(float64(p.detector.SeenCount()))

	if len(delta) > 0 {
		p.logger.Info("poll cycle produced new events", "delta", len(delta), "total", len(events))
		if p.exporter != nil {
			if err := p.exporter.PublishEvents(ctx, delta); err != nil {
				p.logger.Error("delta export failed", "error", err)
			}
		}
		p.dispatcher.DispatchDelta(ctx, delta)
	}

	// The bridge never retries on its own; each poll cycle is the cadence
	// for re-establishing a dropped subscription.
	if p.bridge != nil {
		if err := p.bridge.Subscribe(ctx); err != nil {
			p.logger.Warn("realtime subscribe failed, will retry next cycle", "error", err)
		}
	}

	p.ready.Store(true)
}
