package takt

import (
	"sort"
)

type (
	// Pattern is the static note content of one looping (or one-shot)
	// sequence, bound to one of the song's patches. The live pattern state
	// (start beat, enabled flag) lives in the seq package; this type is just
	// the data that gets serialized into song files.
	Pattern struct {
		Name string `yaml:",omitempty"`

		// Patch is the index of the patch (in Song.Patches) this pattern
		// plays. Patterns with an out-of-range index are silently skipped
		// when a song is loaded.
		Patch int `yaml:",omitempty"`

		// LoopLength is the length of one cycle, in beats. Values <= 0 are
		// clamped to MinLoopLength when the pattern is scheduled, never
		// rejected.
		LoopLength float64

		// Looping makes the pattern repeat every LoopLength beats. A
		// non-looping pattern plays its events during the first cycle only.
		Looping bool `yaml:",omitempty"`

		Events []NoteEvent
	}

	// NoteEvent is one note inside a pattern. Beat is the offset from the
	// start of the cycle; events at or beyond LoopLength can never match and
	// are simply ignored.
	NoteEvent struct {
		Beat     float64
		Note     int
		Velocity int
		Duration float64 // how long the note is held, in beats
	}
)

// MinLoopLength is the smallest cycle length a pattern can be scheduled
// with; shorter (or zero/negative) loop lengths are clamped to this.
const MinLoopLength = 1e-3

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() Pattern {
	events := make([]NoteEvent, len(p.Events))
	copy(events, p.Events)
	return Pattern{Name: p.Name, Patch: p.Patch, LoopLength: p.LoopLength, Looping: p.Looping, Events: events}
}

// Sort orders the events by beat, then by note, so that patterns serialize
// deterministically regardless of the order the events were added in.
func (p *Pattern) Sort() {
	sort.SliceStable(p.Events, func(i, j int) bool {
		if p.Events[i].Beat != p.Events[j].Beat {
			return p.Events[i].Beat < p.Events[j].Beat
		}
		return p.Events[i].Note < p.Events[j].Note
	})
}

// Add appends an event, keeping the events sorted.
func (p *Pattern) Add(e NoteEvent) {
	p.Events = append(p.Events, e)
	p.Sort()
}
