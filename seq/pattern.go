package seq

import (
	"math"
	"sort"
	"time"

	"github.com/taktlab/takt"
	"github.com/taktlab/takt/types"
)

type (
	// Pattern is one registered pattern: the note data bound to the
	// instrument playing it, plus the little scheduling state the transport
	// needs (the beat it started on, the enabled flag). Patterns are
	// created with Sequencer.AddPattern; the data is copied, so later edits
	// to the takt.Pattern it came from have no effect.
	//
	// All fields are guarded by the owning sequencer's lock.
	Pattern struct {
		seq        *Sequencer
		index      int
		name       string
		instrument takt.Instrument
		events     []takt.NoteEvent
		loopLength float64
		looping    bool
		enabled    bool

		// startBeat is bound to the transport position the first time the
		// pattern is processed and never re-captured; all cycle arithmetic
		// is relative to it. Adding a pattern mid-song therefore starts its
		// cycle at the moment it joins, not at the transport's origin.
		startBeat types.Optional[float64]
	}

	// matched is one event caught by an interval match, with its placement
	// on the absolute timeline resolved.
	matched struct {
		event takt.NoteEvent
		cycle int
		beat  float64
	}
)

func newPattern(data takt.Pattern, instrument takt.Instrument) *Pattern {
	data = data.Copy()
	data.Sort()
	loopLength := data.LoopLength
	if loopLength < takt.MinLoopLength {
		loopLength = takt.MinLoopLength
	}
	return &Pattern{
		name:       data.Name,
		instrument: instrument,
		events:     data.Events,
		loopLength: loopLength,
		looping:    data.Looping,
		enabled:    true,
	}
}

func (p *Pattern) Name() string                { return p.name }
func (p *Pattern) Instrument() takt.Instrument { return p.instrument }
func (p *Pattern) LoopLength() float64         { return p.loopLength }
func (p *Pattern) Looping() bool               { return p.looping }

// Index returns the pattern's position in the sequencer's pattern list.
func (p *Pattern) Index() int {
	p.seq.mu.Lock()
	defer p.seq.mu.Unlock()
	return p.index
}

func (p *Pattern) Enabled() bool {
	p.seq.mu.Lock()
	defer p.seq.mu.Unlock()
	return p.enabled
}

// SetEnabled mutes or unmutes the pattern. Disabling silences the
// instrument immediately; notes already past their trigger still get their
// deferred release, which is then a no-op.
func (p *Pattern) SetEnabled(enabled bool) {
	p.seq.mu.Lock()
	p.enabled = enabled
	p.seq.mu.Unlock()
	if !enabled {
		p.instrument.AllNotesOff()
	}
}

// Events returns a copy of the pattern's current note data.
func (p *Pattern) Events() []takt.NoteEvent {
	p.seq.mu.Lock()
	defer p.seq.mu.Unlock()
	return append([]takt.NoteEvent(nil), p.events...)
}

// SetEvents replaces the pattern's note data. Safe while the transport is
// running: the next tick matches against the new events.
func (p *Pattern) SetEvents(events []takt.NoteEvent) {
	sorted := append([]takt.NoteEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Beat != sorted[j].Beat {
			return sorted[i].Beat < sorted[j].Beat
		}
		return sorted[i].Note < sorted[j].Note
	})
	p.seq.mu.Lock()
	p.events = sorted
	p.seq.mu.Unlock()
}

// match collects the events whose beat falls in the processed interval,
// resolving the cycle number and absolute beat of every hit. The interval
// is half open: the starting edge belongs to this call, the ending edge to
// the next one, so ticking twice over adjoining intervals triggers each
// event exactly once. A backward interval (scratching) matches the same
// events the forward one would, with the roles of the edges swapped.
//
// This is the core scheduling computation, shared by the live tick and the
// offline renderer; the only state it mutates is the lazily captured start
// beat.
func (p *Pattern) match(lastBeat, nextBeat float64) []matched {
	start, ok := p.startBeat.Unpack()
	if !ok {
		start = lastBeat
		p.startBeat = types.NewOptional(start)
	}
	if nextBeat == lastBeat {
		return nil
	}
	relStart := lastBeat - start
	relEnd := nextBeat - start
	backward := nextBeat < lastBeat
	length := p.loopLength
	var hits []matched
	if !p.looping {
		// a one-shot pattern plays its first cycle only, so the relative
		// interval is used as is
		for _, e := range p.events {
			if e.Beat < 0 || e.Beat >= length {
				continue
			}
			var hit bool
			if backward {
				hit = relEnd <= e.Beat && e.Beat < relStart
			} else {
				hit = relStart <= e.Beat && e.Beat < relEnd
			}
			if hit {
				hits = append(hits, matched{event: e, beat: start + e.Beat})
			}
		}
		return hits
	}
	startMod := beatMod(relStart, length)
	endMod := beatMod(relEnd, length)
	cycle := int(math.Round((relStart - startMod) / length))
	// an interval spanning a whole number of cycles has equal edges after
	// the modulo; treating that as wrapped makes it cover every event once
	var wrapped bool
	if backward {
		wrapped = endMod >= startMod
	} else {
		wrapped = endMod <= startMod
	}
	for _, e := range p.events {
		if e.Beat < 0 || e.Beat >= length {
			continue
		}
		hit, hitCycle := false, cycle
		switch {
		case !wrapped && !backward:
			hit = startMod <= e.Beat && e.Beat < endMod
		case !wrapped && backward:
			hit = endMod <= e.Beat && e.Beat < startMod
		case wrapped && !backward:
			if e.Beat >= startMod {
				hit = true
			} else if e.Beat < endMod {
				hit, hitCycle = true, cycle+1
			}
		case wrapped && backward:
			if e.Beat < startMod {
				hit = true
			} else if e.Beat >= endMod {
				hit, hitCycle = true, cycle-1
			}
		}
		if hit {
			hits = append(hits, matched{
				event: e,
				cycle: hitCycle,
				beat:  start + float64(hitCycle)*length + e.Beat,
			})
		}
	}
	return hits
}

// process advances the pattern over one transport interval: every matching
// event is triggered on the instrument and its deferred release scheduled
// on the timer. The returned events are notifications for the client; the
// caller dispatches them after releasing the sequencer lock.
//
// Notes the instrument rejects (out of range data in the pattern) are
// skipped without an error.
func (p *Pattern) process(lastBeat, nextBeat, bpm float64, now time.Time, timer *noteOffTimer) []NoteOnEvent {
	if !p.enabled {
		return nil
	}
	hits := p.match(lastBeat, nextBeat)
	if len(hits) == 0 {
		return nil
	}
	events := make([]NoteOnEvent, 0, len(hits))
	for _, hit := range hits {
		if err := p.instrument.NoteOn(hit.event.Note, hit.event.Velocity); err != nil {
			continue
		}
		duration := beatsToDuration(hit.event.Duration, bpm)
		events = append(events, NoteOnEvent{
			Pattern:  p.name,
			Note:     hit.event.Note,
			Velocity: hit.event.Velocity,
			Beat:     hit.beat,
			Cycle:    hit.cycle,
			Time:     now,
			Duration: duration,
		})
		timer.schedule(p.instrument, now.Add(duration), NoteOffEvent{
			Pattern:  p.name,
			Note:     hit.event.Note,
			Velocity: hit.event.Velocity,
			Beat:     hit.beat + hit.event.Duration,
			Cycle:    hit.cycle,
		})
	}
	return events
}

// beatMod wraps a relative beat position into [0, length).
func beatMod(beat, length float64) float64 {
	m := math.Mod(beat, length)
	if m < 0 {
		m += length
	}
	return m
}

// beatsToDuration converts beats to wall clock time at the given tempo.
// The tempo is fixed at conversion time: a note triggered at one bpm keeps
// its length even if the tempo changes while it sounds.
func beatsToDuration(beats, bpm float64) time.Duration {
	if beats < 0 {
		beats = 0
	}
	return time.Duration(beats * 60 / bpm * float64(time.Second))
}
