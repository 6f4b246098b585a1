package synth

import (
	"github.com/taktlab/takt"
)

type envelopeStage int

const (
	stageIdle envelopeStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// Envelope is a linear ADSR generator. It advances by wall time rather than
// sample count, so the stage boundaries do not drift no matter how the
// processing is chunked: the output is always computed from the time spent
// in the current stage.
//
// Attack ramps from 0 to the velocity scaled peak, Decay from the peak down
// to Sustain times the peak, and Release from whatever level was current
// when the gate was released down to 0. A zero duration stage completes on
// the next Process call without consuming any time.
type Envelope struct {
	settings    takt.EnvelopeSettings
	stage       envelopeStage
	time        float64 // time spent in the current stage, seconds
	peak        float64
	releaseFrom float64
}

// NewEnvelope returns an idle envelope with the given settings, clamped to
// valid ranges.
func NewEnvelope(settings takt.EnvelopeSettings) Envelope {
	settings.Clamp()
	return Envelope{settings: settings}
}

// Trigger resets the envelope to the start of the Attack stage. The peak
// level is 1 scaled down by the velocity sensitivity: with sensitivity 0
// velocity has no effect, with sensitivity 1 the peak is velocity/127.
func (e *Envelope) Trigger(velocity int) {
	e.peak = 1 + e.settings.Velocity*(float64(velocity)/takt.MaxVelocity-1)
	e.stage = stageAttack
	e.time = 0
}

// Release moves the envelope to the Release stage from whatever stage it is
// in, capturing the current output as the release start level. Releasing an
// idle envelope does nothing.
func (e *Envelope) Release() {
	if e.stage == stageIdle {
		return
	}
	e.releaseFrom = e.level()
	e.stage = stageRelease
	e.time = 0
}

// Process advances the envelope by dt seconds and returns the new output
// level. Any time left over when a stage completes flows into the next
// stage, so chunk boundaries never distort the shape.
func (e *Envelope) Process(dt float64) float64 {
	e.time += dt
	for {
		switch e.stage {
		case stageIdle, stageSustain:
			return e.level()
		case stageAttack:
			if e.time < e.settings.Attack {
				return e.level()
			}
			e.time -= e.settings.Attack
			e.stage = stageDecay
		case stageDecay:
			if e.time < e.settings.Decay {
				return e.level()
			}
			e.time -= e.settings.Decay
			e.stage = stageSustain
		case stageRelease:
			if e.time < e.settings.Release {
				return e.level()
			}
			e.stage = stageIdle
			e.time = 0
		}
	}
}

// Active returns false only before the envelope has ever been triggered or
// after a release has run to completion.
func (e *Envelope) Active() bool {
	return e.stage != stageIdle
}

// Sustaining tells if the envelope still has its gate held, i.e. has not
// been released yet.
func (e *Envelope) Sustaining() bool {
	return e.stage == stageAttack || e.stage == stageDecay || e.stage == stageSustain
}

// level computes the current output from the stage and the time spent in it.
func (e *Envelope) level() float64 {
	switch e.stage {
	case stageAttack:
		if e.settings.Attack <= 0 {
			return e.peak
		}
		return e.peak * e.time / e.settings.Attack
	case stageDecay:
		if e.settings.Decay <= 0 {
			return e.settings.Sustain * e.peak
		}
		sustain := e.settings.Sustain * e.peak
		return e.peak - (e.peak-sustain)*e.time/e.settings.Decay
	case stageSustain:
		return e.settings.Sustain * e.peak
	case stageRelease:
		if e.settings.Release <= 0 {
			return 0
		}
		return e.releaseFrom * (1 - e.time/e.settings.Release)
	}
	return 0
}
