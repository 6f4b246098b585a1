package takt

import (
	"fmt"
	"strconv"
)

type (
	// Patch is the complete configuration of one instrument: its oscillator,
	// envelopes, LFOs, filter and mixing settings. A Patch is pure data; the
	// synth package turns it into a playing Instrument.
	Patch struct {
		Name    string `yaml:",omitempty"`
		Comment string `yaml:",omitempty"`

		// MaxVoices is the polyphony limit. The voice pool grows lazily up
		// to this many voices and steals the oldest voice beyond it.
		// Clamped to 1..MaxVoices.
		MaxVoices int

		Volume float64
		Pan    float64 `yaml:",omitempty"` // -1 full left .. 1 full right

		Oscillator OscillatorSettings

		// Sample is the sample payload played when Oscillator.Waveform is
		// Sampler. It is attached at runtime and never serialized; sample
		// file I/O is up to the caller.
		Sample *Sample `yaml:"-"`

		AmpEnvelope    EnvelopeSettings
		FilterEnvelope EnvelopeSettings
		PitchEnvelope  EnvelopeSettings

		Filter FilterSettings

		AmpLFO    LFOSettings
		PitchLFO  LFOSettings
		FilterLFO LFOSettings

		// PitchEnvAmount is how many semitones the pitch envelope adds at
		// its peak; negative values bend down.
		PitchEnvAmount float64 `yaml:",omitempty"`

		// FilterEnvAmount is how many Hz the filter envelope adds to the
		// cutoff at its peak.
		FilterEnvAmount float64 `yaml:",omitempty"`
	}

	// EnvelopeSettings are the ADSR times of one envelope. Attack, Decay and
	// Release are in seconds, Sustain is the 0..1 level held after Decay.
	// Velocity is the velocity sensitivity: 0 means the envelope peak is
	// always 1, 1 means the peak scales all the way down with soft notes.
	EnvelopeSettings struct {
		Attack   float64
		Decay    float64
		Sustain  float64
		Release  float64
		Velocity float64 `yaml:",omitempty"`
	}

	// LFOSettings configure one low frequency oscillator. Rate is in Hz when
	// Sync is FreeRunning and in cycles per beat when Sync is TempoSync.
	// Depth 0 disables the LFO. The Noise waveform acts as sample-and-hold,
	// picking a new random value once per cycle.
	LFOSettings struct {
		Waveform Waveform `yaml:",omitempty"`
		Rate     float64  `yaml:",omitempty"`
		Depth    float64  `yaml:",omitempty"`
		Sync     LFOSync  `yaml:",omitempty"`
	}

	// OscillatorSettings configure the per-voice sound source. Transpose and
	// Detune are both in semitones; Detune may be fractional. PulseWidth is
	// the duty cycle of the Pulse waveform, 0 is treated as 0.5 (square).
	OscillatorSettings struct {
		Waveform   Waveform `yaml:",omitempty"`
		Transpose  int      `yaml:",omitempty"`
		Detune     float64  `yaml:",omitempty"`
		PulseWidth float64  `yaml:",omitempty"`
	}

	// FilterSettings configure the per-voice state variable filter. Cutoff
	// is the base cutoff in Hz, before envelope and LFO modulation;
	// Resonance is 0..1.
	FilterSettings struct {
		Mode      FilterMode `yaml:",omitempty"`
		Cutoff    float64    `yaml:",omitempty"`
		Resonance float64    `yaml:",omitempty"`
	}

	// Sample is a mono sample payload for the Sampler waveform. RootNote is
	// the note at which the sample plays back at its original speed.
	Sample struct {
		Frames   []float32 `yaml:"-"`
		RootNote int
		Loop     LoopSettings
	}

	// LoopSettings define how a sample sustains. Start and End are frame
	// indices into the sample; End 0 means the end of the sample. Crossfade
	// is the length, in frames, of the equal power blend applied when the
	// cursor jumps across a loop boundary; 0 disables crossfading.
	LoopSettings struct {
		Mode      LoopMode `yaml:",omitempty"`
		Start     int      `yaml:",omitempty"`
		End       int      `yaml:",omitempty"`
		Crossfade int      `yaml:",omitempty"`
	}

	// Waveform enumerates the oscillator shapes. The same enum doubles as the
	// LFO shape, where Saw rises, Pulse is a square and Noise acts as
	// sample-and-hold.
	Waveform int

	// FilterMode selects the state variable filter output; NoFilter
	// bypasses the filter entirely.
	FilterMode int

	// LoopMode selects how a sample cursor behaves at the loop boundary.
	LoopMode int

	// LFOSync selects whether an LFO rate is in Hz or in cycles per beat.
	LFOSync int
)

const (
	Sine Waveform = iota
	Triangle
	Saw
	Pulse
	Noise
	Sampler
)

const (
	NoFilter FilterMode = iota
	LowPass
	BandPass
	HighPass
)

const (
	LoopNone LoopMode = iota
	LoopForward
	LoopPingPong
	LoopReverse
)

const (
	FreeRunning LFOSync = iota
	TempoSync
)

// Cutoff limits for the filter, in Hz. Modulated cutoffs are clamped into
// this range sample by sample.
const (
	MinCutoff = 20
	MaxCutoff = 20000
)

var waveformNames = [...]string{"sine", "triangle", "saw", "pulse", "noise", "sampler"}
var filterModeNames = [...]string{"none", "lowpass", "bandpass", "highpass"}
var loopModeNames = [...]string{"none", "forward", "pingpong", "reverse"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return "waveform(" + strconv.Itoa(int(w)) + ")"
	}
	return waveformNames[w]
}

func (m FilterMode) String() string {
	if m < 0 || int(m) >= len(filterModeNames) {
		return "filtermode(" + strconv.Itoa(int(m)) + ")"
	}
	return filterModeNames[m]
}

func (m LoopMode) String() string {
	if m < 0 || int(m) >= len(loopModeNames) {
		return "loopmode(" + strconv.Itoa(int(m)) + ")"
	}
	return loopModeNames[m]
}

// Copy makes a deep copy of a Patch. The sample frames are shared, not
// copied; they are read-only once attached.
func (p *Patch) Copy() Patch {
	ret := *p
	if p.Sample != nil {
		sample := *p.Sample
		ret.Sample = &sample
	}
	return ret
}

// Clamp forces every field of the patch into its valid range, in place.
// Loading a patch never fails because of out-of-range values; they are
// clamped instead.
func (p *Patch) Clamp() {
	p.MaxVoices = clampInt(p.MaxVoices, 1, MaxVoices)
	p.Volume = clampFloat(p.Volume, 0, 1)
	p.Pan = clampFloat(p.Pan, -1, 1)
	if p.Oscillator.Waveform < Sine || p.Oscillator.Waveform > Sampler {
		p.Oscillator.Waveform = Sine
	}
	if p.Oscillator.PulseWidth == 0 {
		p.Oscillator.PulseWidth = 0.5
	}
	p.Oscillator.PulseWidth = clampFloat(p.Oscillator.PulseWidth, 0.01, 0.99)
	p.AmpEnvelope.Clamp()
	p.FilterEnvelope.Clamp()
	p.PitchEnvelope.Clamp()
	if p.Filter.Mode < NoFilter || p.Filter.Mode > HighPass {
		p.Filter.Mode = NoFilter
	}
	if p.Filter.Mode != NoFilter {
		p.Filter.Cutoff = clampFloat(p.Filter.Cutoff, MinCutoff, MaxCutoff)
	}
	p.Filter.Resonance = clampFloat(p.Filter.Resonance, 0, 1)
	p.AmpLFO.Clamp()
	p.PitchLFO.Clamp()
	p.FilterLFO.Clamp()
	if p.Sample != nil {
		p.Sample.Loop.Clamp(len(p.Sample.Frames))
		p.Sample.RootNote = clampInt(p.Sample.RootNote, MinNote, MaxNote)
	}
}

// Clamp forces the envelope settings into their valid ranges, in place.
// Negative stage durations become zero length stages, which complete
// instantly when the envelope is processed.
func (e *EnvelopeSettings) Clamp() {
	e.Attack = maxFloat(e.Attack, 0)
	e.Decay = maxFloat(e.Decay, 0)
	e.Sustain = clampFloat(e.Sustain, 0, 1)
	e.Release = maxFloat(e.Release, 0)
	e.Velocity = clampFloat(e.Velocity, 0, 1)
}

// Clamp forces the LFO settings into their valid ranges, in place. The
// Sampler waveform makes no sense for an LFO and falls back to Sine.
func (l *LFOSettings) Clamp() {
	if l.Waveform < Sine || l.Waveform >= Sampler {
		l.Waveform = Sine
	}
	l.Rate = maxFloat(l.Rate, 0)
	l.Depth = maxFloat(l.Depth, 0)
	if l.Sync != FreeRunning && l.Sync != TempoSync {
		l.Sync = FreeRunning
	}
}

// Clamp forces the loop points inside the sample of numFrames frames, in
// place, so that Start < End and the crossfade fits in the looped region.
func (l *LoopSettings) Clamp(numFrames int) {
	if l.Mode < LoopNone || l.Mode > LoopReverse {
		l.Mode = LoopNone
	}
	if l.End <= 0 || l.End > numFrames {
		l.End = numFrames
	}
	l.Start = clampInt(l.Start, 0, l.End)
	if l.Start >= l.End {
		l.Mode = LoopNone
	}
	if max := l.End - l.Start; l.Crossfade > max {
		l.Crossfade = max
	}
	if l.Crossfade < 0 {
		l.Crossfade = 0
	}
}

// String returns a short human readable summary of the patch, for logs and
// error messages.
func (p *Patch) String() string {
	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s: %v, %d voices", name, p.Oscillator.Waveform, p.MaxVoices)
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxFloat(value, min float64) float64 {
	if value < min {
		return min
	}
	return value
}
