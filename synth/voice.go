package synth

import (
	"time"

	"github.com/taktlab/takt"
)

// voice is one sounding note: its envelopes, tone source and filter state.
// Envelope settings are cloned from the patch at trigger time, so editing
// the patch never bends a note that is already playing; oscillator, filter
// and LFO settings are read live from the patch instead.
type voice struct {
	active       bool
	note         int
	velocityGain float64
	triggeredAt  time.Time

	ampEnv    Envelope
	filterEnv Envelope
	pitchEnv  Envelope

	osc    oscillator
	cursor sampleCursor
	filt   filter
}

func (v *voice) trigger(note, velocity int, patch *takt.Patch, now time.Time) {
	v.active = true
	v.note = note
	v.velocityGain = float64(velocity) / takt.MaxVelocity
	v.triggeredAt = now
	v.ampEnv = NewEnvelope(patch.AmpEnvelope)
	v.filterEnv = NewEnvelope(patch.FilterEnvelope)
	v.pitchEnv = NewEnvelope(patch.PitchEnvelope)
	v.ampEnv.Trigger(velocity)
	v.filterEnv.Trigger(velocity)
	v.pitchEnv.Trigger(velocity)
	v.osc = newOscillator()
	v.cursor = newSampleCursor(patch.Sample)
	v.filt.reset()
}

func (v *voice) release() {
	v.ampEnv.Release()
	v.filterEnv.Release()
	v.pitchEnv.Release()
}

// sustaining tells if the voice still has its gate held.
func (v *voice) sustaining() bool {
	return v.ampEnv.Sustaining()
}

// renderFrame computes one mono output sample and advances the voice state.
// The LFO arguments are the instrument wide modulation values for this
// frame, already depth scaled: pitchLFO in semitones, filterLFO in Hz,
// ampLFO as a gain fraction. When the amp envelope runs out the voice
// deactivates itself and returns silence.
func (v *voice) renderFrame(patch *takt.Patch, dt, pitchLFO, filterLFO, ampLFO float64) float64 {
	ampLevel := v.ampEnv.Process(dt)
	if !v.ampEnv.Active() {
		v.active = false
		return 0
	}
	pitchMod := patch.PitchEnvAmount*v.pitchEnv.Process(dt) + pitchLFO
	base := float64(v.note+patch.Oscillator.Transpose) + patch.Oscillator.Detune
	var out float64
	if patch.Oscillator.Waveform == takt.Sampler {
		if patch.Sample != nil {
			ratio := noteToFreq(base+pitchMod) / noteToFreq(float64(patch.Sample.RootNote))
			out = v.cursor.next(ratio)
		}
	} else {
		freq := noteToFreq(base + pitchMod)
		out = v.osc.sample(patch.Oscillator.Waveform, freq/takt.SampleRate, patch.Oscillator.PulseWidth)
	}
	if patch.Filter.Mode != takt.NoFilter {
		cutoff := patch.Filter.Cutoff + patch.FilterEnvAmount*v.filterEnv.Process(dt) + filterLFO
		if cutoff < takt.MinCutoff {
			cutoff = takt.MinCutoff
		} else if cutoff > takt.MaxCutoff {
			cutoff = takt.MaxCutoff
		}
		out = v.filt.process(out, cutoff, patch.Filter.Resonance, patch.Filter.Mode)
	}
	return out * v.velocityGain * ampLevel * (1 + ampLFO)
}
