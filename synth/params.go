package synth

import (
	"fmt"
	"sort"

	"github.com/taktlab/takt"
)

// Param documents one parameter that an Instrument takes. Envelope
// parameters only affect voices triggered after the change; everything else
// takes effect on the next rendered buffer.
type Param struct {
	Name     string
	MinValue float64 // minimum value, inclusive
	MaxValue float64 // maximum value, inclusive
	set      func(patch *takt.Patch, value float64)
}

// Params documents all the parameters the built in instrument accepts
// through SetParameter, keyed by name.
var Params = map[string]Param{
	"volume":             {Name: "volume", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.Volume = v }},
	"pan":                {Name: "pan", MinValue: -1, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.Pan = v }},
	"bpm":                {Name: "bpm", MinValue: 1, MaxValue: 999},
	"osc.waveform":       {Name: "osc.waveform", MinValue: float64(takt.Sine), MaxValue: float64(takt.Sampler), set: func(p *takt.Patch, v float64) { p.Oscillator.Waveform = takt.Waveform(v) }},
	"osc.transpose":      {Name: "osc.transpose", MinValue: -48, MaxValue: 48, set: func(p *takt.Patch, v float64) { p.Oscillator.Transpose = int(v) }},
	"osc.detune":         {Name: "osc.detune", MinValue: -1, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.Oscillator.Detune = v }},
	"osc.pulsewidth":     {Name: "osc.pulsewidth", MinValue: 0.01, MaxValue: 0.99, set: func(p *takt.Patch, v float64) { p.Oscillator.PulseWidth = v }},
	"filter.mode":        {Name: "filter.mode", MinValue: float64(takt.NoFilter), MaxValue: float64(takt.HighPass), set: func(p *takt.Patch, v float64) { p.Filter.Mode = takt.FilterMode(v) }},
	"filter.cutoff":      {Name: "filter.cutoff", MinValue: takt.MinCutoff, MaxValue: takt.MaxCutoff, set: func(p *takt.Patch, v float64) { p.Filter.Cutoff = v }},
	"filter.resonance":   {Name: "filter.resonance", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.Filter.Resonance = v }},
	"filter.envamount":   {Name: "filter.envamount", MinValue: -takt.MaxCutoff, MaxValue: takt.MaxCutoff, set: func(p *takt.Patch, v float64) { p.FilterEnvAmount = v }},
	"pitch.envamount":    {Name: "pitch.envamount", MinValue: -48, MaxValue: 48, set: func(p *takt.Patch, v float64) { p.PitchEnvAmount = v }},
	"amp.attack":         {Name: "amp.attack", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.AmpEnvelope.Attack = v }},
	"amp.decay":          {Name: "amp.decay", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.AmpEnvelope.Decay = v }},
	"amp.sustain":        {Name: "amp.sustain", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.AmpEnvelope.Sustain = v }},
	"amp.release":        {Name: "amp.release", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.AmpEnvelope.Release = v }},
	"amp.velocity":       {Name: "amp.velocity", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.AmpEnvelope.Velocity = v }},
	"fenv.attack":        {Name: "fenv.attack", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.FilterEnvelope.Attack = v }},
	"fenv.decay":         {Name: "fenv.decay", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.FilterEnvelope.Decay = v }},
	"fenv.sustain":       {Name: "fenv.sustain", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.FilterEnvelope.Sustain = v }},
	"fenv.release":       {Name: "fenv.release", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.FilterEnvelope.Release = v }},
	"fenv.velocity":      {Name: "fenv.velocity", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.FilterEnvelope.Velocity = v }},
	"penv.attack":        {Name: "penv.attack", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.PitchEnvelope.Attack = v }},
	"penv.decay":         {Name: "penv.decay", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.PitchEnvelope.Decay = v }},
	"penv.sustain":       {Name: "penv.sustain", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.PitchEnvelope.Sustain = v }},
	"penv.release":       {Name: "penv.release", MinValue: 0, MaxValue: 20, set: func(p *takt.Patch, v float64) { p.PitchEnvelope.Release = v }},
	"amplfo.waveform":    {Name: "amplfo.waveform", MinValue: float64(takt.Sine), MaxValue: float64(takt.Noise), set: func(p *takt.Patch, v float64) { p.AmpLFO.Waveform = takt.Waveform(v) }},
	"amplfo.rate":        {Name: "amplfo.rate", MinValue: 0, MaxValue: 100, set: func(p *takt.Patch, v float64) { p.AmpLFO.Rate = v }},
	"amplfo.depth":       {Name: "amplfo.depth", MinValue: 0, MaxValue: 1, set: func(p *takt.Patch, v float64) { p.AmpLFO.Depth = v }},
	"amplfo.sync":        {Name: "amplfo.sync", MinValue: float64(takt.FreeRunning), MaxValue: float64(takt.TempoSync), set: func(p *takt.Patch, v float64) { p.AmpLFO.Sync = takt.LFOSync(v) }},
	"pitchlfo.waveform":  {Name: "pitchlfo.waveform", MinValue: float64(takt.Sine), MaxValue: float64(takt.Noise), set: func(p *takt.Patch, v float64) { p.PitchLFO.Waveform = takt.Waveform(v) }},
	"pitchlfo.rate":      {Name: "pitchlfo.rate", MinValue: 0, MaxValue: 100, set: func(p *takt.Patch, v float64) { p.PitchLFO.Rate = v }},
	"pitchlfo.depth":     {Name: "pitchlfo.depth", MinValue: 0, MaxValue: 48, set: func(p *takt.Patch, v float64) { p.PitchLFO.Depth = v }},
	"pitchlfo.sync":      {Name: "pitchlfo.sync", MinValue: float64(takt.FreeRunning), MaxValue: float64(takt.TempoSync), set: func(p *takt.Patch, v float64) { p.PitchLFO.Sync = takt.LFOSync(v) }},
	"filterlfo.waveform": {Name: "filterlfo.waveform", MinValue: float64(takt.Sine), MaxValue: float64(takt.Noise), set: func(p *takt.Patch, v float64) { p.FilterLFO.Waveform = takt.Waveform(v) }},
	"filterlfo.rate":     {Name: "filterlfo.rate", MinValue: 0, MaxValue: 100, set: func(p *takt.Patch, v float64) { p.FilterLFO.Rate = v }},
	"filterlfo.depth":    {Name: "filterlfo.depth", MinValue: 0, MaxValue: takt.MaxCutoff, set: func(p *takt.Patch, v float64) { p.FilterLFO.Depth = v }},
	"filterlfo.sync":     {Name: "filterlfo.sync", MinValue: float64(takt.FreeRunning), MaxValue: float64(takt.TempoSync), set: func(p *takt.Patch, v float64) { p.FilterLFO.Sync = takt.LFOSync(v) }},
}

// ParamNames is a list of all the parameter names, sorted alphabetically.
var ParamNames []string

func init() {
	ParamNames = make([]string, 0, len(Params))
	for k := range Params {
		ParamNames = append(ParamNames, k)
	}
	sort.Strings(ParamNames)
}

// SetParameter sets a named parameter from the Params table. Unknown names
// and out-of-range values are rejected with an error wrapping
// takt.ErrInvalidArgument.
func (s *Instrument) SetParameter(name string, value float64) error {
	param, ok := Params[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q: %w", name, takt.ErrInvalidArgument)
	}
	if value < param.MinValue || value > param.MaxValue {
		return fmt.Errorf("parameter %q value %v outside %v..%v: %w", name, value, param.MinValue, param.MaxValue, takt.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "bpm" {
		s.bpm = value
		return nil
	}
	param.set(&s.patch, value)
	return nil
}
