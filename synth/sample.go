package synth

import (
	"math"

	"github.com/taktlab/takt"
)

// sampleCursor plays one takt.Sample for one voice. The cursor position is
// fractional; frames are read with linear interpolation and the position
// advances by the pitch ratio each sample.
//
// Loop handling: LoopNone plays through once and goes silent. LoopForward
// jumps back to the loop start when the cursor passes the loop end.
// LoopPingPong reflects the direction at both loop boundaries; the reflected
// read is value continuous, so it needs no crossfade. LoopReverse plays
// forward into the loop once, then runs the loop region backwards, jumping
// back to the loop end at the loop start.
//
// For the jumping modes a crossfade window can be configured: while the
// cursor is inside the window before the jump target's far edge, the output
// blends the signal at the cursor with the signal one loop length away,
// using an equal power curve, so the jump lands without a click.
type sampleCursor struct {
	sample  *takt.Sample
	pos     float64
	dir     float64
	done    bool
	entered bool // whether the cursor has reached the loop region yet
}

func newSampleCursor(sample *takt.Sample) sampleCursor {
	return sampleCursor{sample: sample, dir: 1}
}

// next returns the current output frame and advances the cursor by ratio
// frames. A finished or empty cursor returns 0.
func (c *sampleCursor) next(ratio float64) float64 {
	if c.done || c.sample == nil || len(c.sample.Frames) == 0 {
		return 0
	}
	out := c.value()
	c.advance(ratio)
	return out
}

func (c *sampleCursor) active() bool {
	return !c.done && c.sample != nil && len(c.sample.Frames) > 0
}

func (c *sampleCursor) value() float64 {
	loop := c.sample.Loop
	out := c.frameAt(c.pos)
	if c.entered && loop.Crossfade > 0 {
		length := float64(loop.End - loop.Start)
		fade := float64(loop.Crossfade)
		switch loop.Mode {
		case takt.LoopForward:
			// fade towards the signal just before the loop start while
			// approaching the loop end
			if into := c.pos - (float64(loop.End) - fade); into > 0 && c.pos >= float64(loop.Start)+fade {
				g := into / fade * math.Pi / 2
				out = out*math.Cos(g) + c.frameAt(c.pos-length)*math.Sin(g)
			}
		case takt.LoopReverse:
			// running backwards; fade towards the signal past the loop end
			// while approaching the loop start
			if into := (float64(loop.Start) + fade) - c.pos; into > 0 && c.pos <= float64(loop.End)-fade {
				g := into / fade * math.Pi / 2
				out = out*math.Cos(g) + c.frameAt(c.pos+length)*math.Sin(g)
			}
		}
	}
	return out
}

func (c *sampleCursor) advance(ratio float64) {
	loop := c.sample.Loop
	c.pos += ratio * c.dir
	numFrames := float64(len(c.sample.Frames))
	if loop.Mode == takt.LoopNone || loop.Start >= loop.End {
		if c.pos >= numFrames {
			c.done = true
		}
		return
	}
	start, end := float64(loop.Start), float64(loop.End)
	if !c.entered && c.pos >= start {
		c.entered = true
	}
	if !c.entered {
		return
	}
	switch loop.Mode {
	case takt.LoopForward:
		for c.pos >= end {
			c.pos -= end - start
		}
	case takt.LoopPingPong:
		// strict comparisons: a cursor exactly on a boundary stays put
		// and turns around on the next advance
		for c.pos > end || c.pos < start {
			if c.pos > end {
				c.pos = 2*end - c.pos
			} else {
				c.pos = 2*start - c.pos
			}
			c.dir = -c.dir
		}
	case takt.LoopReverse:
		if c.dir > 0 && c.pos >= end {
			c.pos = end - (c.pos - end)
			c.dir = -1
		}
		for c.dir < 0 && c.pos < start {
			c.pos += end - start
		}
	}
}

// frameAt reads the sample at a fractional position with linear
// interpolation, clamping out of range reads to silence.
func (c *sampleCursor) frameAt(pos float64) float64 {
	frames := c.sample.Frames
	if pos < 0 || pos >= float64(len(frames)) {
		return 0
	}
	i := int(pos)
	frac := pos - float64(i)
	if i+1 >= len(frames) {
		return float64(frames[i])
	}
	return float64(frames[i])*(1-frac) + float64(frames[i+1])*frac
}
