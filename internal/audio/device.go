// Package audio synthesizes and plays attention tones under constrained
// audio-output policies, degrading through an ordered fallback chain rather
// than ever failing the caller.
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DeviceState models the lifecycle of the platform's low-latency output
// context: uninitialized → suspended → running. The suspended → running
// transition is attempted on every user gesture, since platforms routinely
// refuse the first resume.
type DeviceState int

const (
	StateUninitialized DeviceState = iota
	StateSuspended
	StateRunning
)

func (s DeviceState) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	default:
		return "uninitialized"
	}
}

// Device is the platform's low-latency audio output context. Implementations
// are supplied by the embedding presentation layer.
type Device interface {
	// State reports the current lifecycle state.
	State() DeviceState
	// Resume attempts the suspended → running transition.
	Resume(ctx context.Context) error
	// PlayPCM plays raw samples directly through the device.
	PlayPCM(ctx context.Context, samples []float32, sampleRate int) error
}

// resumeRetryDelay is the pause before the second resume attempt on
// constrained platforms, where the first attempt routinely reports success
// without actually leaving the suspended state.
const resumeRetryDelay = 100 * time.Millisecond

// Handle is the shared, lazily-constructed wrapper around the process-wide
// audio device plus its persistent activation flag. One Handle is shared by
// the engine across every alert it plays; it is torn down only at process
// exit.
type Handle struct {
	mu        sync.Mutex
	device    Device
	factory   func() (Device, error)
	activated bool
	clk       clockwork.Clock
}

// NewHandle creates a Handle. The factory constructs the device on first
// use; a nil factory models a platform with no low-latency output at all.
func NewHandle(factory func() (Device, error), clk clockwork.Clock) *Handle {
	return &Handle{factory: factory, clk: clk}
}

// Activated reports whether a user gesture has successfully activated the
// device at least once.
func (h *Handle) Activated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activated
}

// ensure lazily constructs the device and tries to bring it to the running
// state. On constrained platforms a second resume attempt follows a short
// delay, because a single early attempt is frequently insufficient.
func (h *Handle) ensure(ctx context.Context, constrained bool) (Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.device == nil {
		if h.factory == nil {
			return nil, fmt.Errorf("no audio device factory configured")
		}
		dev, err := h.factory()
		if err != nil {
			return nil, fmt.Errorf("construct audio device: %w", err)
		}
		h.device = dev
	}

	if h.device.State() == StateRunning {
		return h.device, nil
	}

	if err := h.device.Resume(ctx); err != nil {
		return nil, fmt.Errorf("resume audio device: %w", err)
	}
	if h.device.State() == StateRunning {
		return h.device, nil
	}

	if constrained {
		if !h.sleep(ctx, resumeRetryDelay) {
			return nil, ctx.Err()
		}
		if err := h.device.Resume(ctx); err != nil {
			return nil, fmt.Errorf("second resume attempt: %w", err)
		}
		if h.device.State() == StateRunning {
			return h.device, nil
		}
	}

	return nil, fmt.Errorf("audio device stuck in %s state", h.device.State())
}

// markActivated records a successful gesture-driven activation.
func (h *Handle) markActivated() {
	h.mu.Lock()
	h.activated = true
	h.mu.Unlock()
}

func (h *Handle) sleep(ctx context.Context, d time.Duration) bool {
	timer := h.clk.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
