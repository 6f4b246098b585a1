package synth

import (
	"math"

	"github.com/taktlab/takt"
)

// oscillator is the per voice tone source for the basic waveforms. The
// Sampler waveform is handled by sampleCursor instead.
type oscillator struct {
	phase    float64
	randSeed uint32
}

func newOscillator() oscillator {
	return oscillator{randSeed: 1}
}

// sample advances the phase by omega (cycles per sample) and returns the
// amplitude of the given waveform in -1..1. pulseWidth is the duty cycle of
// the Pulse waveform and ignored by the others.
func (o *oscillator) sample(waveform takt.Waveform, omega, pulseWidth float64) float64 {
	var amplitude float64
	switch waveform {
	case takt.Sine:
		amplitude = math.Sin(2 * math.Pi * o.phase)
	case takt.Triangle:
		if o.phase < 0.5 {
			amplitude = 4*o.phase - 1
		} else {
			amplitude = 3 - 4*o.phase
		}
	case takt.Saw:
		amplitude = 2*o.phase - 1
	case takt.Pulse:
		if o.phase < pulseWidth {
			amplitude = 1
		} else {
			amplitude = -1
		}
	case takt.Noise:
		amplitude = float64(o.rand())
	}
	o.phase += omega
	o.phase -= math.Floor(o.phase)
	return amplitude
}

func (o *oscillator) rand() float32 {
	o.randSeed *= 16007
	return float32(int32(o.randSeed)) / -2147483648.0
}

// noteToFreq converts a note number to Hz, with A4 = note 69 = 440 Hz.
// Fractional notes are fine; detune is just a fractional note offset.
func noteToFreq(note float64) float64 {
	return 440 * math.Exp2((note-69)/12)
}
