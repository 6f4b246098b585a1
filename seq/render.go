package seq

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/taktlab/takt"
)

// renderChunk is the number of frames rendered between scheduling steps
// when bouncing offline. At 44100 Hz this quantizes triggers to under 6 ms,
// about the same granularity the live tick has.
const renderChunk = 256

// Render bounces a song offline, faster than real time, and returns the
// interleaved stereo result. instruments[i] plays song.Patches[i]; the
// scheduling is the same interval matching the live transport does, with
// note lengths measured in beats instead of wall clock time. The render
// covers song.RenderLength() beats; voices still sounding at the end are
// cut with the buffer.
func Render(song takt.Song, instruments []takt.Instrument) (takt.AudioBuffer, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if len(instruments) != len(song.Patches) {
		return nil, fmt.Errorf("render: %d instruments for %d patches", len(instruments), len(song.Patches))
	}
	bpm := song.BPM
	for _, instrument := range instruments {
		instrument.SetParameter("bpm", bpm)
	}
	patterns := make([]*Pattern, 0, len(song.Patterns))
	for _, data := range song.Patterns {
		patterns = append(patterns, newPattern(data, instruments[data.Patch]))
	}
	totalFrames := int(math.Ceil(song.RenderLength() * 60 / bpm * takt.SampleRate))
	out := make(takt.AudioBuffer, 2*totalFrames)
	mixer := takt.NewMixer(instruments...)
	var offs renderOffQueue
	beat := 0.0
	for pos := 0; pos < totalFrames; pos += renderChunk {
		frames := renderChunk
		if rem := totalFrames - pos; rem < frames {
			frames = rem
		}
		nextBeat := beat + float64(frames)/takt.SampleRate*bpm/60
		for _, p := range patterns {
			for _, hit := range p.match(beat, nextBeat) {
				if err := p.instrument.NoteOn(hit.event.Note, hit.event.Velocity); err != nil {
					continue
				}
				duration := hit.event.Duration
				if duration < 0 {
					duration = 0
				}
				heap.Push(&offs, renderOff{
					beat:       hit.beat + duration,
					instrument: p.instrument,
					note:       hit.event.Note,
				})
			}
		}
		for len(offs) > 0 && offs[0].beat <= nextBeat {
			off := heap.Pop(&offs).(renderOff)
			off.instrument.NoteOff(off.note)
		}
		if _, err := mixer.ReadAudio(out[2*pos : 2*(pos+frames)]); err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		beat = nextBeat
	}
	return out, nil
}

type renderOff struct {
	beat       float64
	instrument takt.Instrument
	note       int
}

type renderOffQueue []renderOff

func (q renderOffQueue) Len() int           { return len(q) }
func (q renderOffQueue) Less(i, j int) bool { return q[i].beat < q[j].beat }
func (q renderOffQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *renderOffQueue) Push(x any) {
	*q = append(*q, x.(renderOff))
}

func (q *renderOffQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
