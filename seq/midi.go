package seq

import (
	"errors"

	"github.com/taktlab/takt"
)

type (
	// MIDIContext is the seam between the engine and a MIDI backend. The
	// real implementation lives in the gomidi package.
	MIDIContext interface {
		InputDevices(yield func(device MIDIDevice) bool)
		TryToOpenBy(namePrefix string, takeFirst bool) error
		Connect(instrument takt.Instrument)
		HasDeviceOpen() bool
		Close()
	}

	// MIDIDevice is one input port of a MIDIContext.
	MIDIDevice interface {
		Open() error
		String() string
	}
)

// NullMIDIContext is a mockup MIDIContext if you don't want to create a
// real one, e.g. when the MIDI backend is not compiled in.
type NullMIDIContext struct{}

func (NullMIDIContext) InputDevices(yield func(device MIDIDevice) bool) {}
func (NullMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	return errors.New("no MIDI support in this build")
}
func (NullMIDIContext) Connect(instrument takt.Instrument) {}
func (NullMIDIContext) HasDeviceOpen() bool                { return false }
func (NullMIDIContext) Close()                             {}
