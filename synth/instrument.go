package synth

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taktlab/takt"
)

// Instrument is the built in polyphonic voice engine implementing
// takt.Instrument. It owns a pool of voices that grows lazily up to the
// patch's MaxVoices; beyond that, new notes steal the voice with the oldest
// trigger timestamp.
//
// One mutex guards all voice and parameter state, shared between the
// trigger path and the render path. Read holds it for the duration of one
// buffer, so triggers arriving mid buffer take effect at the next one.
type Instrument struct {
	mu     sync.Mutex
	patch  takt.Patch
	voices []*voice
	bpm    float64

	ampLFO    LFO
	pitchLFO  LFO
	filterLFO LFO
}

// NewInstrument builds an instrument from a patch. The patch is copied and
// clamped; later edits to the caller's copy have no effect.
func NewInstrument(patch takt.Patch) *Instrument {
	patch = patch.Copy()
	patch.Clamp()
	return &Instrument{
		patch:     patch,
		bpm:       120,
		ampLFO:    NewLFO(),
		pitchLFO:  NewLFO(),
		filterLFO: NewLFO(),
	}
}

// NoteOn starts a note, stealing the oldest voice if the pool is full. A
// note that is already sounding is retriggered in place, so repeated
// NoteOns for the same note never grow the pool.
func (s *Instrument) NoteOn(note, velocity int) error {
	if !takt.ValidNote(note, velocity) {
		return fmt.Errorf("note on %v velocity %v: %w", note, velocity, takt.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, v := range s.voices {
		if v.active && v.note == note {
			v.trigger(note, velocity, &s.patch, now)
			return nil
		}
	}
	s.findFreeVoice().trigger(note, velocity, &s.patch, now)
	return nil
}

// NoteOff releases every voice still holding the given note. Voices already
// in their release tail are left alone.
func (s *Instrument) NoteOff(note int) error {
	if note < takt.MinNote || note > takt.MaxNote {
		return fmt.Errorf("note off %v: %w", note, takt.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voices {
		if v.active && v.note == note && v.sustaining() {
			v.release()
		}
	}
	return nil
}

// AllNotesOff releases every sustaining voice.
func (s *Instrument) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voices {
		if v.active && v.sustaining() {
			v.release()
		}
	}
}

// Read renders into buffer[offset : offset+count], interleaved stereo. The
// region is cleared first and every active voice accumulates into it;
// voices whose amp envelope has completed are dropped from the active set.
// Always fills exactly count values.
func (s *Instrument) Read(buffer []float32, offset, count int) (n int, renderError error) {
	if offset < 0 || count < 0 || offset+count > len(buffer) {
		return 0, fmt.Errorf("read region %v+%v outside buffer of %v: %w", offset, count, len(buffer), takt.ErrInvalidArgument)
	}
	defer func() {
		if err := recover(); err != nil {
			renderError = fmt.Errorf("render panicced: %v", err)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	region := buffer[offset : offset+count]
	for i := range region {
		region[i] = 0
	}
	volume := s.patch.Volume
	gainL, gainR := volume, volume
	if s.patch.Pan > 0 {
		gainL *= 1 - s.patch.Pan
	} else if s.patch.Pan < 0 {
		gainR *= 1 + s.patch.Pan
	}
	const dt = 1.0 / takt.SampleRate
	frames := count / 2
	for frame := 0; frame < frames; frame++ {
		pitchLFO := s.pitchLFO.Sample(s.patch.PitchLFO, dt, s.bpm)
		filterLFO := s.filterLFO.Sample(s.patch.FilterLFO, dt, s.bpm)
		ampLFO := s.ampLFO.Sample(s.patch.AmpLFO, dt, s.bpm)
		var sum float64
		for _, v := range s.voices {
			if v.active {
				sum += v.renderFrame(&s.patch, dt, pitchLFO, filterLFO, ampLFO)
			}
		}
		region[2*frame] = float32(sum * gainL)
		region[2*frame+1] = float32(sum * gainR)
	}
	return count, nil
}

// findFreeVoice returns an inactive voice, growing the pool while it is
// below the patch's MaxVoices. With the pool full, the voice with the
// oldest trigger timestamp wins and is cut immediately, without a release
// fade.
func (s *Instrument) findFreeVoice() *voice {
	for _, v := range s.voices {
		if !v.active {
			return v
		}
	}
	if len(s.voices) < s.patch.MaxVoices {
		v := &voice{}
		s.voices = append(s.voices, v)
		return v
	}
	oldest := s.voices[0]
	for _, v := range s.voices[1:] {
		if v.triggeredAt.Before(oldest.triggeredAt) {
			oldest = v
		}
	}
	return oldest
}

// SetSample attaches the sample payload played by the Sampler waveform.
// Voices triggered after this call play the new sample; sounding voices
// keep their cursor into the old one.
func (s *Instrument) SetSample(sample *takt.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sample != nil {
		cp := *sample
		cp.Loop.Clamp(len(cp.Frames))
		cp.RootNote = clampNote(cp.RootNote)
		sample = &cp
	}
	s.patch.Sample = sample
}

// Patch returns a copy of the instrument's current patch, including any
// parameter changes applied since construction.
func (s *Instrument) Patch() takt.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patch.Copy()
}

// NumVoices returns the number of voices allocated so far, active or not;
// it never exceeds the patch's MaxVoices.
func (s *Instrument) NumVoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// ActiveVoices returns the number of currently sounding voices, release
// tails included.
func (s *Instrument) ActiveVoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := 0
	for _, v := range s.voices {
		if v.active {
			ret++
		}
	}
	return ret
}

// ActiveNotes returns the sorted note numbers of all sounding voices.
func (s *Instrument) ActiveNotes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []int
	for _, v := range s.voices {
		if v.active {
			ret = append(ret, v.note)
		}
	}
	sort.Ints(ret)
	return ret
}

func clampNote(note int) int {
	if note < takt.MinNote {
		return takt.MinNote
	}
	if note > takt.MaxNote {
		return takt.MaxNote
	}
	return note
}
