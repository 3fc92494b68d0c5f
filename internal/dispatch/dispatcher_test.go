package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/audio"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type raisedAlert struct {
	msg  domain.AlertMessage
	opts SurfaceOptions
}

type mockSurface struct {
	raised  []raisedAlert
	err     error
	handles []*mockHandle
}

type mockHandle struct {
	clicked func()
	closed  bool
}

func (h *mockHandle) OnClick(f func()) { h.clicked = f }
func (h *mockHandle) Close()           { h.closed = true }

func (s *mockSurface) Raise(_ context.Context, msg domain.AlertMessage, opts SurfaceOptions) (Handle, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.raised = append(s.raised, raisedAlert{msg: msg, opts: opts})
	h := &mockHandle{}
	s.handles = append(s.handles, h)
	return h, nil
}

type mockPlayer struct {
	urgent    int
	broadcast int
}

func (p *mockPlayer) PlayUrgent(context.Context) audio.Outcome {
	p.urgent++
	return audio.OutcomeDevice
}

func (p *mockPlayer) PlayBroadcast(context.Context) audio.Outcome {
	p.broadcast++
	return audio.OutcomeDevice
}

func granted() domain.PermissionState { return domain.PermissionGranted }
func denied() domain.PermissionState  { return domain.PermissionDenied }

func newDispatcher(surface *mockSurface, player *mockPlayer, perm PermissionFunc, clk clockwork.Clock) *Dispatcher {
	return New(surface, player, perm, nil, "en", 4.5, clk,
		discardLogger(), observability.NewMetricsForTesting())
}

func quake(id string, mag float64) domain.Earthquake {
	return domain.Earthquake{ID: id, Magnitude: mag, Place: "Central Turkey", DepthKm: 10}
}

func TestDispatchDelta_UrgentEventRaisesExactlyOneAlert(t *testing.T) {
	surface := &mockSurface{}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, granted, clockwork.NewFakeClock())

	d.DispatchDelta(context.Background(), []domain.Earthquake{quake("eq1", 4.6)})

	require.Len(t, surface.raised, 1)
	alert := surface.raised[0]
	assert.Equal(t, domain.OriginLocalUrgent, alert.msg.Origin)
	assert.Equal(t, "M4.6 earthquake", alert.msg.Title)
	assert.Equal(t, "eq1", alert.opts.Tag)
	assert.False(t, alert.opts.Silent)
	assert.Equal(t, 1, player.urgent)
}

func TestDispatchDelta_BelowThresholdIgnored(t *testing.T) {
	surface := &mockSurface{}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, granted, clockwork.NewFakeClock())

	// 4.5 is the threshold itself; only strictly-above fires.
	d.DispatchDelta(context.Background(), []domain.Earthquake{
		quake("eq1", 4.5),
		quake("eq2", 2.0),
		quake("eq3", 0),
	})

	assert.Empty(t, surface.raised)
	assert.Zero(t, player.urgent)
}

func TestDispatchDelta_PermissionDeniedSuppresses(t *testing.T) {
	surface := &mockSurface{}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, denied, clockwork.NewFakeClock())

	d.DispatchDelta(context.Background(), []domain.Earthquake{quake("eq1", 6.0)})

	assert.Empty(t, surface.raised)
	assert.Zero(t, player.urgent)
}

func TestDispatchDelta_SurfaceErrorDoesNotPanic(t *testing.T) {
	surface := &mockSurface{err: errors.New("surface unavailable")}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, granted, clockwork.NewFakeClock())

	assert.NotPanics(t, func() {
		d.DispatchDelta(context.Background(), []domain.Earthquake{quake("eq1", 6.0)})
	})
	// The tone still plays even when the surface fails.
	assert.Equal(t, 1, player.urgent)
}

func TestDispatchDelta_AutoDismissAfterWindow(t *testing.T) {
	clk := clockwork.NewFakeClock()
	surface := &mockSurface{}
	d := newDispatcher(surface, &mockPlayer{}, granted, clk)

	d.DispatchDelta(context.Background(), []domain.Earthquake{quake("eq1", 5.0)})
	require.Len(t, surface.handles, 1)
	assert.False(t, surface.handles[0].closed)

	clk.Advance(localDismissAfter)
	assert.Eventually(t, func() bool { return surface.handles[0].closed }, time.Second, time.Millisecond)
}

func TestDispatchDelta_ClickForegrounds(t *testing.T) {
	surface := &mockSurface{}
	foregrounded := false
	d := New(surface, &mockPlayer{}, granted, func() { foregrounded = true },
		"en", 4.5, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	d.DispatchDelta(context.Background(), []domain.Earthquake{quake("eq1", 5.0)})

	require.Len(t, surface.handles, 1)
	require.NotNil(t, surface.handles[0].clicked)
	surface.handles[0].clicked()
	assert.True(t, foregrounded)
}

func broadcastMsg(lang string, sound bool) domain.AlertMessage {
	return domain.AlertMessage{
		Title:    "Operator notice",
		Body:     "Scheduled maintenance",
		Language: lang,
		Origin:   domain.OriginOperatorBroadcast,
		Sound:    sound,
	}
}

func TestDispatchBroadcast_LanguageAll(t *testing.T) {
	surface := &mockSurface{}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, granted, clockwork.NewFakeClock())

	d.DispatchBroadcast(context.Background(), broadcastMsg("all", true))

	require.Len(t, surface.raised, 1)
	assert.True(t, surface.raised[0].opts.RequireInteraction)
	assert.Equal(t, 1, player.broadcast)
}

func TestDispatchBroadcast_MatchingLanguage(t *testing.T) {
	surface := &mockSurface{}
	d := newDispatcher(surface, &mockPlayer{}, granted, clockwork.NewFakeClock())

	d.DispatchBroadcast(context.Background(), broadcastMsg("en", false))

	assert.Len(t, surface.raised, 1)
}

func TestDispatchBroadcast_LanguageMismatchDropsSilently(t *testing.T) {
	surface := &mockSurface{}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, granted, clockwork.NewFakeClock())

	d.DispatchBroadcast(context.Background(), broadcastMsg("ru", true))

	assert.Empty(t, surface.raised)
	assert.Zero(t, player.broadcast)
}

func TestDispatchBroadcast_SoundFlagOff(t *testing.T) {
	player := &mockPlayer{}
	d := newDispatcher(&mockSurface{}, player, granted, clockwork.NewFakeClock())

	d.DispatchBroadcast(context.Background(), broadcastMsg("all", false))

	assert.Zero(t, player.broadcast)
}

func TestDispatchBroadcast_PermissionDeniedStillPlaysSound(t *testing.T) {
	surface := &mockSurface{}
	player := &mockPlayer{}
	d := newDispatcher(surface, player, denied, clockwork.NewFakeClock())

	d.DispatchBroadcast(context.Background(), broadcastMsg("all", true))

	assert.Empty(t, surface.raised)
	assert.Equal(t, 1, player.broadcast)
}
