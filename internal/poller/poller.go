// Package poller drives the fixed-interval feed fetch loop.
package poller

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/feed"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// OnResult receives each successful poll's full, time-descending event set.
// It runs on the poll loop goroutine; the loop is the single mutator of all
// downstream state.
type OnResult func(ctx context.Context, events []domain.Earthquake)

// Poller fetches the feed on a fixed interval while auto-refresh is enabled,
// with a manual trigger always available. A failed cycle keeps the last good
// result set and surfaces an error string; the next scheduled tick is the
// retry. No mid-cycle retries, no backoff, and no fault ever halts the loop.
type Poller struct {
	fetcher  feed.Fetcher
	interval time.Duration
	onResult OnResult
	clk      clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	trigger chan struct{}

	mu          sync.Mutex
	last        []domain.Earthquake
	lastErr     string
	autoRefresh bool
}

// New creates a Poller. onResult is invoked after every successful cycle.
func New(fetcher feed.Fetcher, interval time.Duration, onResult OnResult,
	clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		fetcher:     fetcher,
		interval:    interval,
		onResult:    onResult,
		clk:         clk,
		logger:      logger,
		metrics:     metrics,
		trigger:     make(chan struct{}, 1),
		autoRefresh: true,
	}
}

// TriggerNow requests an immediate poll cycle. Coalesces if one is already
// pending.
func (p *Poller) TriggerNow() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// SetAutoRefresh toggles the interval timer's effect. The manual trigger
// keeps working either way.
func (p *Poller) SetAutoRefresh(enabled bool) {
	p.mu.Lock()
	p.autoRefresh = enabled
	p.mu.Unlock()
}

// Snapshot returns the last good result set and the current error status
// ("" when the last cycle succeeded).
func (p *Poller) Snapshot() ([]domain.Earthquake, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.lastErr
}

// Run polls immediately, then on every tick or manual trigger, until the
// context is cancelled. Cancellation stops the ticker: a dangling timer
// after teardown would keep mutating state with no consumer.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := p.clk.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			if p.refreshEnabled() {
				p.poll(ctx)
			}
		case <-p.trigger:
			p.poll(ctx)
		}
	}
}

func (p *Poller) refreshEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoRefresh
}

// poll runs one fetch cycle. Failures retain the previous snapshot.
func (p *Poller) poll(ctx context.Context) {
	start := p.clk.Now()

	events, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.PollsTotal.WithLabelValues("error").Inc()
		p.logger.Error("poll cycle failed, keeping last good result set", "error", err)
		p.mu.Lock()
		p.lastErr = err.Error()
		p.mu.Unlock()
		return
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})

	p.mu.Lock()
	p.last = events
	p.lastErr = ""
	p.mu.Unlock()

	p.metrics.PollsTotal.WithLabelValues("success").Inc()
	p.metrics.PollDuration.Observe(p.clk.Since(start).Seconds())

	if p.onResult != nil {
		p.onResult(ctx, events)
	}
}
