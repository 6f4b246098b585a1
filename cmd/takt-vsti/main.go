//go:build plugin

package main

import (
	"sync"

	"gopkg.in/yaml.v3"
	"pipelined.dev/audio/vst2"

	"github.com/taktlab/takt"
	"github.com/taktlab/takt/synth"
)

type (
	// pluginState is everything one plugin instance owns. The host calls
	// ProcessEvents right before ProcessFloat on the same thread, so the
	// event buffer needs no lock; the mutex only makes chunk loads atomic
	// with rendering.
	pluginState struct {
		mu         sync.Mutex
		patch      takt.Patch
		instrument *synth.Instrument
		host       vst2.Host
		events     []noteEvent
		buf        takt.AudioBuffer
		bpm        float64
	}

	noteEvent struct {
		frame    int
		on       bool
		note     int
		velocity int
	}
)

func (s *pluginState) pushEvent(ev *vst2.MIDIEvent) {
	switch {
	case ev.Data[0] >= 0x80 && ev.Data[0] < 0x90:
		s.events = append(s.events, noteEvent{frame: int(ev.DeltaFrames), on: false, note: int(ev.Data[1])})
	case ev.Data[0] >= 0x90 && ev.Data[0] < 0xA0:
		velocity := int(ev.Data[2])
		// a note on with velocity 0 is a note off in running status
		s.events = append(s.events, noteEvent{frame: int(ev.DeltaFrames), on: velocity > 0, note: int(ev.Data[1]), velocity: velocity})
	default:
		// ignore all other MIDI messages
	}
}

// process renders one block, triggering the buffered events at their frame
// so notes land sample accurately inside the block.
func (s *pluginState) process(out vst2.FloatBuffer) {
	left, right := out.Channel(0), out.Channel(1)
	if cap(s.buf) < 2*out.Frames {
		s.buf = make(takt.AudioBuffer, 2*out.Frames)
	}
	buf := s.buf[:2*out.Frames]
	s.mu.Lock()
	if bpm, ok := s.hostBPM(); ok && bpm != s.bpm {
		s.bpm = bpm
		s.instrument.SetParameter("bpm", bpm)
	}
	pos := 0
	for _, ev := range s.events {
		f := min(max(ev.frame, pos), out.Frames)
		if f > pos {
			s.instrument.Read(buf, 2*pos, 2*(f-pos))
			pos = f
		}
		if ev.on {
			s.instrument.NoteOn(ev.note, ev.velocity)
		} else {
			s.instrument.NoteOff(ev.note)
		}
	}
	if pos < out.Frames {
		s.instrument.Read(buf, 2*pos, 2*(out.Frames-pos))
	}
	s.mu.Unlock()
	for i := 0; i < out.Frames; i++ {
		left[i], right[i] = buf[2*i], buf[2*i+1]
	}
	s.events = s.events[:0] // reset buffer, but keep the allocated memory
}

func (s *pluginState) hostBPM() (bpm float64, ok bool) {
	timeInfo := s.host.GetTimeInfo(vst2.TempoValid)
	if timeInfo == nil || timeInfo.Flags&vst2.TempoValid == 0 || timeInfo.Tempo == 0 {
		return 0, false
	}
	return timeInfo.Tempo, true
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		patch := takt.DefaultPatch()
		state := &pluginState{patch: patch, instrument: synth.NewInstrument(patch), host: h}
		return vst2.Plugin{
				UniqueID:       PLUGIN_ID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           PLUGIN_NAME,
				Vendor:         "taktlab/takt",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					state.process(out)
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						switch v := ev.Event(i).(type) {
						case *vst2.MIDIEvent:
							state.pushEvent(v)
						}
					}
				},
				CloseFunc: func() {
					state.mu.Lock()
					state.instrument.AllNotesOff()
					state.mu.Unlock()
				},
				GetChunkFunc: func(isPreset bool) []byte {
					state.mu.Lock()
					defer state.mu.Unlock()
					data, err := yaml.Marshal(state.patch)
					if err != nil {
						return nil
					}
					return data
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					var patch takt.Patch
					if err := yaml.Unmarshal(data, &patch); err != nil {
						return
					}
					patch.Clamp()
					state.mu.Lock()
					state.patch = patch
					state.instrument = synth.NewInstrument(patch)
					state.mu.Unlock()
				},
			}
	}
}

func main() {}
