package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/taktlab/takt"
	"github.com/taktlab/takt/cmd"
	"github.com/taktlab/takt/oto"
	"github.com/taktlab/takt/seq"
	"github.com/taktlab/takt/synth"
	"github.com/taktlab/takt/version"
)

var (
	midiInput   = flag.String("midi-input", "", "connect MIDI input to matching device name prefix; by default the first device is taken")
	presetName  = flag.String("preset", "", "name of the preset to play")
	listFlag    = flag.Bool("list", false, "list the available presets and MIDI inputs, then exit")
	meterFlag   = flag.Bool("meter", false, "show a level meter instead of the played notes")
	versionFlag = flag.Bool("v", false, "Print version.")
)

func main() {
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	broker := seq.NewBroker()
	midiContext := cmd.NewMidiContext(broker)
	defer midiContext.Close()
	if *listFlag {
		fmt.Println("presets:")
		for _, name := range takt.LoadBank().Names() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("midi inputs:")
		for device := range midiContext.InputDevices {
			fmt.Printf("  %s\n", device)
		}
		os.Exit(0)
	}
	patch := takt.DefaultPatch()
	if *presetName != "" {
		var ok bool
		patch, ok = takt.LoadBank().Find(*presetName)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown preset %q; try -list\n", *presetName)
			os.Exit(1)
		}
	}
	instrument := synth.NewInstrument(patch)
	midiContext.Connect(instrument)
	if err := midiContext.TryToOpenBy(*midiInput, !isFlagPassed("midi-input")); err != nil {
		fmt.Fprintf(os.Stderr, "no MIDI input: %v\n", err)
	}
	audioContext, err := oto.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire audio context: %v\n", err)
		os.Exit(1)
	}
	defer audioContext.Close()
	detector := seq.NewDetector(broker)
	go detector.Run()
	playWaiter := audioContext.Play(seq.NewAnalyzedSource(takt.InstrumentSource(instrument), broker))
	defer playWaiter.Close()
	fmt.Printf("%s, %d voices; ctrl-c to quit\n", patchName(patch), patch.MaxVoices)
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	for {
		select {
		case <-interrupt:
			fmt.Println()
			instrument.AllNotesOff()
			seq.TrySend(broker.CloseDetector, struct{}{})
			seq.TimeoutReceive(broker.FinishedDetector, time.Second)
			return
		case msg := <-broker.ToClient:
			switch e := msg.(type) {
			case seq.NoteOnEvent:
				if !*meterFlag {
					fmt.Printf("on  %-4s vel %3d\n", seq.NoteName(e.Note), e.Velocity)
				}
			case seq.NoteOffEvent:
				if !*meterFlag {
					fmt.Printf("off %-4s\n", seq.NoteName(e.Note))
				}
			case seq.LevelsEvent:
				if *meterFlag {
					fmt.Printf("\r%s", meterLine(e))
				}
			case seq.Alert:
				fmt.Fprintf(os.Stderr, "%s: %s\n", e.Priority, e.Message)
			}
		}
	}
}

func patchName(patch takt.Patch) string {
	if patch.Name != "" {
		return patch.Name
	}
	return "default patch"
}

// meterLine draws both channels as 20 character wide amplitude bars, RMS as
// the bar and peak as a marker.
func meterLine(levels seq.LevelsEvent) string {
	var sb strings.Builder
	for chn := 0; chn < 2; chn++ {
		rms := int(levels.RMS[chn]*20 + 0.5)
		peak := int(levels.Peak[chn]*20 + 0.5)
		sb.WriteByte("LR"[chn])
		sb.WriteString(" [")
		for i := 0; i < 20; i++ {
			switch {
			case i < rms:
				sb.WriteByte('#')
			case i == peak:
				sb.WriteByte('|')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("] ")
	}
	return sb.String()
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
