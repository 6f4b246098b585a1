package takt

import (
	"errors"
)

// ErrInvalidArgument is returned (wrapped) by Instrument implementations when
// a call is rejected at the boundary: a note or velocity outside 0..127, an
// unknown parameter name, or a parameter value outside its documented range.
// Out-of-range data coming from patterns is never an error; events that
// cannot match are simply skipped.
var ErrInvalidArgument = errors.New("invalid argument")

// Instrument is anything the sequencer can trigger notes on and pull audio
// from. The synth package provides the built-in implementation, but any
// synthesis backend satisfying this interface can be scheduled.
type Instrument interface {
	// NoteOn starts a note. Both note and velocity are 0..127; values
	// outside that range return an error wrapping ErrInvalidArgument.
	// Triggering a note that is already sounding retriggers it in place
	// instead of allocating another voice.
	NoteOn(note, velocity int) error

	// NoteOff releases every voice currently sounding the given note.
	// Releasing a note that is not sounding is not an error.
	NoteOff(note int) error

	// AllNotesOff releases every active voice.
	AllNotesOff()

	// Read renders audio into buffer[offset : offset+count], interleaved
	// stereo, accumulating all active voices. It always fills exactly count
	// values and returns count. Safe to call at any time, also when nothing
	// is playing.
	Read(buffer []float32, offset, count int) (int, error)

	// SetParameter sets a named parameter. Unknown names and values outside
	// the parameter's range return an error wrapping ErrInvalidArgument.
	// The set of valid names is fixed per implementation; see the synth
	// package for the built-in table.
	SetParameter(name string, value float64) error
}

// Limits of the note and velocity values accepted by Instrument.NoteOn, and
// of the polyphony of a single patch.
const (
	MinNote     = 0
	MaxNote     = 127
	MaxVelocity = 127
	MaxVoices   = 32
)

// ValidNote tells if NoteOn would accept the note and velocity.
func ValidNote(note, velocity int) bool {
	return note >= MinNote && note <= MaxNote && velocity >= 0 && velocity <= MaxVelocity
}
