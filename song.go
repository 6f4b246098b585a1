package takt

import (
	"errors"
	"fmt"
)

// Song bundles everything needed to play a piece: the tempo, the list of
// patches and the patterns playing them. Patterns loop independently of each
// other; a song has no global length, so Length only matters when rendering
// offline.
type Song struct {
	// BPM is the tempo in beats per minute. Zero and negative tempos are
	// clamped to MinBPM by the sequencer, never rejected.
	BPM float64

	// Length is the offline render length in beats. 0 means one full cycle
	// of the longest pattern.
	Length float64 `yaml:",omitempty"`

	Patches  []Patch
	Patterns []Pattern
}

// MinBPM is the slowest tempo the sequencer will run at; slower (or
// zero/negative) tempos are clamped to this.
const MinBPM = 1

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	patches := make([]Patch, len(s.Patches))
	for i := range s.Patches {
		patches[i] = s.Patches[i].Copy()
	}
	patterns := make([]Pattern, len(s.Patterns))
	for i := range s.Patterns {
		patterns[i] = s.Patterns[i].Copy()
	}
	return Song{BPM: s.BPM, Length: s.Length, Patches: patches, Patterns: patterns}
}

// Validate checks if the Song looks playable: tempo above zero, at least one
// patch, and every pattern bound to a patch that exists. Out-of-range note
// data inside patterns is fine; such events just never trigger.
func (s *Song) Validate() error {
	if s.BPM <= 0 {
		return errors.New("BPM should be > 0")
	}
	if len(s.Patches) == 0 {
		return errors.New("song contains no patches")
	}
	for i, p := range s.Patterns {
		if p.Patch < 0 || p.Patch >= len(s.Patches) {
			return fmt.Errorf("pattern %d uses patch %d, song has %d patches", i, p.Patch, len(s.Patches))
		}
		if p.LoopLength <= 0 {
			return fmt.Errorf("pattern %d has non-positive loop length %v", i, p.LoopLength)
		}
	}
	return nil
}

// TotalVoices returns the polyphony of the whole song; summing the MaxVoices
// of every patch.
func (s *Song) TotalVoices() int {
	ret := 0
	for _, p := range s.Patches {
		ret += p.MaxVoices
	}
	return ret
}

// RenderLength returns the length to use when rendering offline, in beats:
// Length if set, otherwise one full cycle of the longest pattern, and one
// beat for a song with no patterns.
func (s *Song) RenderLength() float64 {
	if s.Length > 0 {
		return s.Length
	}
	longest := 0.0
	for _, p := range s.Patterns {
		if p.LoopLength > longest {
			longest = p.LoopLength
		}
	}
	if longest <= 0 {
		return 1
	}
	return longest
}
