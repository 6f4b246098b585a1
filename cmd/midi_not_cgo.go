//go:build !cgo

package cmd

import (
	"github.com/taktlab/takt/seq"
)

func NewMidiContext(broker *seq.Broker) seq.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return seq.NullMIDIContext{}
}
