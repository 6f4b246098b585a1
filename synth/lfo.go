package synth

import (
	"math"

	"github.com/taktlab/takt"
)

// LFO is a low frequency modulator, shared across all voices of an
// instrument and sampled once per output frame. It only keeps the running
// phase; the settings are passed in on every call so that parameter changes
// take effect immediately.
//
// The output is the waveform in -1..1 scaled by the configured depth, so
// the depth carries the modulation units: semitones for pitch, Hz for
// filter cutoff, a gain fraction for amplitude. The Noise waveform acts as
// sample-and-hold, picking a new random value once per cycle.
type LFO struct {
	phase    float64
	hold     float64
	randSeed uint32
}

func NewLFO() LFO {
	l := LFO{randSeed: 1}
	l.hold = float64(l.rand())
	return l
}

// Sample advances the LFO by dt seconds and returns the depth scaled value.
// bpm only matters for tempo synced LFOs, whose rate is in cycles per beat.
// An LFO with zero depth or rate always returns 0.
func (l *LFO) Sample(settings takt.LFOSettings, dt, bpm float64) float64 {
	if settings.Depth == 0 || settings.Rate == 0 {
		return 0
	}
	cyclesPerSec := settings.Rate
	if settings.Sync == takt.TempoSync {
		cyclesPerSec = settings.Rate * bpm / 60
	}
	var value float64
	switch settings.Waveform {
	case takt.Sine:
		value = math.Sin(2 * math.Pi * l.phase)
	case takt.Triangle:
		if l.phase < 0.5 {
			value = 4*l.phase - 1
		} else {
			value = 3 - 4*l.phase
		}
	case takt.Saw:
		value = 2*l.phase - 1
	case takt.Pulse:
		if l.phase < 0.5 {
			value = 1
		} else {
			value = -1
		}
	case takt.Noise:
		value = l.hold
	}
	l.phase += cyclesPerSec * dt
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
		l.hold = float64(l.rand())
	}
	return value * settings.Depth
}

// Reset zeros the phase and the held sample-and-hold value.
func (l *LFO) Reset() {
	l.phase = 0
	l.hold = 0
}

func (l *LFO) rand() float32 {
	l.randSeed *= 16007
	return float32(int32(l.randSeed)) / -2147483648.0
}
