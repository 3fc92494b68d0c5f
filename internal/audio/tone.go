package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is used for all synthesized tones.
const DefaultSampleRate = 44100

// Attention tone frequencies. The urgent local-event tone superimposes two
// sines for salience; constrained paths get a single sine, which some mobile
// output stacks handle more reliably.
const (
	urgentLowHz  = 880  // A5
	urgentHighHz = 1318 // E6
	plainToneHz  = 880
)

const toneDuration = 350 * time.Millisecond

// Tone selects which attention tone to synthesize.
type Tone int

const (
	// ToneUrgent is the two-tone mix played for local urgent events.
	ToneUrgent Tone = iota
	// TonePlain is the single tone used for constrained paths and broadcasts.
	TonePlain
)

// Synthesize renders the tone as mono float32 samples in [-1, 1].
func Synthesize(t Tone, sampleRate int) []float32 {
	switch t {
	case ToneUrgent:
		return mixSines([]float64{urgentLowHz, urgentHighHz}, toneDuration, sampleRate)
	default:
		return mixSines([]float64{plainToneHz}, toneDuration, sampleRate)
	}
}

// mixSines superimposes equal-amplitude sine waves, scaled so the mix stays
// within [-1, 1], with a short linear fade-in/out to avoid clicks at the
// buffer edges.
func mixSines(freqs []float64, dur time.Duration, sampleRate int) []float32 {
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]float32, n)
	amp := 0.8 / float64(len(freqs))
	fade := sampleRate / 100 // 10 ms ramp

	for i := range samples {
		t := float64(i) / float64(sampleRate)
		var v float64
		for _, f := range freqs {
			v += amp * math.Sin(2*math.Pi*f*t)
		}
		switch {
		case i < fade:
			v *= float64(i) / float64(fade)
		case i >= n-fade:
			v *= float64(n-1-i) / float64(fade)
		}
		samples[i] = float32(v)
	}
	return samples
}
