//go:build cgo

package cmd

import (
	"github.com/taktlab/takt/gomidi"
	"github.com/taktlab/takt/seq"
)

func NewMidiContext(broker *seq.Broker) seq.MIDIContext {
	return gomidi.NewContext(broker)
}
