package synth

import (
	"math"

	"github.com/taktlab/takt"
)

// filter is a per voice state variable filter. All three responses fall out
// of the same two integrator states; the mode just selects which one is
// returned.
type filter struct {
	low  float64
	band float64
}

// maxOmega keeps the integrators stable when the modulated cutoff gets
// pushed towards the upper end of the audible range.
const maxOmega = 1.2

// process runs one sample through the filter. cutoff is in Hz, already
// clamped to MinCutoff..MaxCutoff; resonance is 0..1 where 1 rings the
// hardest.
func (f *filter) process(in float64, cutoff, resonance float64, mode takt.FilterMode) float64 {
	omega := 2 * math.Sin(math.Pi*cutoff/takt.SampleRate)
	if omega > maxOmega {
		omega = maxOmega
	}
	damp := 1 - 0.95*resonance
	f.low += omega * f.band
	high := in - f.low - damp*f.band
	f.band += omega * high
	switch mode {
	case takt.LowPass:
		return f.low
	case takt.BandPass:
		return f.band
	case takt.HighPass:
		return high
	}
	return in
}

func (f *filter) reset() {
	f.low = 0
	f.band = 0
}
