package audio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// MediaPlayer is the platform's generic media-element playback path, used as
// the fallback when the low-latency device never reaches the running state.
type MediaPlayer interface {
	PlayFile(ctx context.Context, wav []byte) error
}

// Outcome names the fallback tier that served a Play call. OutcomeSilent is
// the accepted degraded result; the native alert surface's own system sound
// may still be audible.
type Outcome string

const (
	OutcomeDevice Outcome = "device"
	OutcomeMedia  Outcome = "media"
	OutcomeSilent Outcome = "silent"
)

// Replay offsets for the urgent path, purely for audibility.
var urgentReplayOffsets = []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}

// Engine plays attention tones despite platform autoplay restrictions. Play
// never returns an error: each fallback tier is best-effort and
// independently fault-tolerant, and total silence is a valid outcome.
type Engine struct {
	handle      *Handle
	media       MediaPlayer
	constrained bool
	sampleRate  int
	clk         clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewEngine creates an Engine around the shared device handle. media may be
// nil when the platform has no generic playback path.
func NewEngine(handle *Handle, media MediaPlayer, constrained bool, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		handle:      handle,
		media:       media,
		constrained: constrained,
		sampleRate:  DefaultSampleRate,
		clk:         clk,
		logger:      logger,
		metrics:     metrics,
	}
}

// strategy is one tier of the ordered fallback chain.
type strategy struct {
	name Outcome
	play func(ctx context.Context, samples []float32) error
}

func (e *Engine) strategies() []strategy {
	return []strategy{
		{
			name: OutcomeDevice,
			play: func(ctx context.Context, samples []float32) error {
				dev, err := e.handle.ensure(ctx, e.constrained)
				if err != nil {
					return err
				}
				return dev.PlayPCM(ctx, samples, e.sampleRate)
			},
		},
		{
			name: OutcomeMedia,
			play: func(ctx context.Context, samples []float32) error {
				if e.media == nil {
					return errNoMediaPlayer
				}
				return e.media.PlayFile(ctx, EncodeWAV(samples, e.sampleRate))
			},
		},
	}
}

// Play synthesizes the tone and tries each fallback tier in order. It always
// returns the outcome, never an error.
func (e *Engine) Play(ctx context.Context, tone Tone) Outcome {
	// Constrained platforms get the single tone regardless of the requested
	// variant; the two-tone mix is reserved for the direct device path.
	if e.constrained && tone == ToneUrgent {
		tone = TonePlain
	}
	samples := Synthesize(tone, e.sampleRate)

	for _, s := range e.strategies() {
		if err := s.play(ctx, samples); err != nil {
			e.logger.Debug("audio tier failed", "tier", string(s.name), "error", err)
			continue
		}
		e.metrics.AudioPlays.WithLabelValues(string(s.name)).Inc()
		return s.name
	}

	e.metrics.AudioPlays.WithLabelValues(string(OutcomeSilent)).Inc()
	e.logger.Info("all audio tiers failed, degrading to silent alert")
	return OutcomeSilent
}

// PlayUrgent plays the urgent tone and, on unconstrained platforms, repeats
// it at fixed offsets for audibility. Constrained platforms skip the
// replays, since even a single successful play is not guaranteed there.
func (e *Engine) PlayUrgent(ctx context.Context) Outcome {
	outcome := e.Play(ctx, ToneUrgent)
	if e.constrained {
		return outcome
	}
	for _, offset := range urgentReplayOffsets {
		e.clk.AfterFunc(offset, func() {
			e.Play(ctx, ToneUrgent)
		})
	}
	return outcome
}

// PlayBroadcast plays the single broadcast tone once.
func (e *Engine) PlayBroadcast(ctx context.Context) Outcome {
	return e.Play(ctx, TonePlain)
}

// Activate eagerly constructs and resumes the device from a direct user
// gesture (accepting a disclaimer, tapping an enable-sound control).
// Resuming inside a gesture is far more reliable than resuming inside an
// asynchronous callback, so callers should route every such gesture here.
func (e *Engine) Activate(ctx context.Context) {
	dev, err := e.handle.ensure(ctx, e.constrained)
	if err != nil {
		e.logger.Debug("audio activation failed", "error", err)
		return
	}
	if dev.State() == StateRunning {
		e.handle.markActivated()
		e.logger.Info("audio device activated")
	}
}

// ProbeResume opportunistically retries the suspended → running transition.
// On constrained platforms callers invoke this from every interaction event
// (pointer activity, visibility regain), since a single early attempt is
// frequently insufficient. Failures are swallowed.
func (e *Engine) ProbeResume(ctx context.Context) {
	e.metrics.AudioResumeProbes.Inc()
	if dev, err := e.handle.ensure(ctx, e.constrained); err == nil && dev.State() == StateRunning {
		e.handle.markActivated()
	}
}

// Activated reports whether a user gesture has activated the device.
func (e *Engine) Activated() bool {
	return e.handle.Activated()
}

var errNoMediaPlayer = errors.New("no media playback path configured")
