// Package cmd contains the wiring shared by the command line binaries.
package cmd

import (
	"github.com/taktlab/takt"
	"github.com/taktlab/takt/synth"
)

// Instruments builds one polyphonic instrument per patch of the song, in
// patch order, ready to be handed to seq.Render or bound to sequencer
// patterns.
func Instruments(song takt.Song) []takt.Instrument {
	instruments := make([]takt.Instrument, len(song.Patches))
	for i := range song.Patches {
		instruments[i] = synth.NewInstrument(song.Patches[i])
	}
	return instruments
}
