package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedFetcher returns one scripted result per call, repeating the last
// entry once the script runs out.
type scriptedFetcher struct {
	mu     sync.Mutex
	script []fetchResult
	calls  int
}

type fetchResult struct {
	events []domain.Earthquake
	err    error
}

func (f *scriptedFetcher) Fetch(context.Context) ([]domain.Earthquake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.calls++
	r := f.script[i]
	return r.events, r.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// results collects every delivered event set.
type results struct {
	mu   sync.Mutex
	sets [][]domain.Earthquake
}

func (r *results) record(_ context.Context, events []domain.Earthquake) {
	r.mu.Lock()
	r.sets = append(r.sets, events)
	r.mu.Unlock()
}

func (r *results) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

func (r *results) set(i int) []domain.Earthquake {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets[i]
}

func quake(id string, mag float64, at time.Time) domain.Earthquake {
	return domain.Earthquake{ID: id, Magnitude: mag, Place: "somewhere", Time: at}
}

func startPoller(t *testing.T, fetcher *scriptedFetcher, onResult OnResult, clk clockwork.Clock) *Poller {
	t.Helper()
	p := New(fetcher, 10*time.Second, onResult, clk, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p
}

func TestRun_PollsImmediatelyThenOnTicks(t *testing.T) {
	base := time.Date(2024, time.April, 26, 13, 50, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(base)

	fetcher := &scriptedFetcher{script: []fetchResult{
		{events: []domain.Earthquake{quake("eq1", 3.2, base)}},
	}}
	rec := &results{}
	p := startPoller(t, fetcher, rec.record, clk)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Wait for the ticker before advancing, then one tick means one cycle.
	require.NoError(t, clk.BlockUntilContext(context.Background(), 1))
	clk.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	events, errStatus := p.Snapshot()
	assert.Empty(t, errStatus)
	require.Len(t, events, 1)
	assert.Equal(t, "eq1", events[0].ID)
}

func TestRun_SortsResultsByTimeDescending(t *testing.T) {
	base := time.Date(2024, time.April, 26, 13, 50, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(base)

	fetcher := &scriptedFetcher{script: []fetchResult{
		{events: []domain.Earthquake{
			quake("old", 3.0, base.Add(-2*time.Hour)),
			quake("new", 4.0, base),
			quake("mid", 2.0, base.Add(-time.Hour)),
		}},
	}}
	rec := &results{}
	startPoller(t, fetcher, rec.record, clk)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	got := rec.set(0)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "old", got[2].ID)
}

func TestRun_FailureKeepsLastGoodSnapshot(t *testing.T) {
	base := time.Date(2024, time.April, 26, 13, 50, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(base)

	fetcher := &scriptedFetcher{script: []fetchResult{
		{events: []domain.Earthquake{quake("eq1", 3.2, base)}},
		{err: errors.New("upstream 503")},
		{events: []domain.Earthquake{quake("eq1", 3.2, base), quake("eq2", 2.1, base)}},
	}}
	rec := &results{}
	p := startPoller(t, fetcher, rec.record, clk)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Failed cycle: no onResult call, snapshot keeps the last good set and
	// carries the error status.
	require.NoError(t, clk.BlockUntilContext(context.Background(), 1))
	clk.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return fetcher.callCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, rec.count())
	events, errStatus := p.Snapshot()
	require.Len(t, events, 1)
	assert.Contains(t, errStatus, "upstream 503")

	// The next tick is the retry; success clears the status.
	require.NoError(t, clk.BlockUntilContext(context.Background(), 1))
	clk.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	events, errStatus = p.Snapshot()
	assert.Empty(t, errStatus)
	assert.Len(t, events, 2)
}

func TestTriggerNow_PollsWithoutWaitingForTick(t *testing.T) {
	base := time.Date(2024, time.April, 26, 13, 50, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(base)

	fetcher := &scriptedFetcher{script: []fetchResult{
		{events: []domain.Earthquake{quake("eq1", 3.2, base)}},
	}}
	rec := &results{}
	p := startPoller(t, fetcher, rec.record, clk)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	p.TriggerNow()
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSetAutoRefresh_DisablesTicksButNotManualTrigger(t *testing.T) {
	base := time.Date(2024, time.April, 26, 13, 50, 0, 0, time.UTC)
	clk := clockwork.NewFakeClockAt(base)

	fetcher := &scriptedFetcher{script: []fetchResult{
		{events: []domain.Earthquake{quake("eq1", 3.2, base)}},
	}}
	rec := &results{}
	p := startPoller(t, fetcher, rec.record, clk)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	p.SetAutoRefresh(false)

	require.NoError(t, clk.BlockUntilContext(context.Background(), 1))
	clk.Advance(10 * time.Second)
	clk.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	p.TriggerNow()
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}
