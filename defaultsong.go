package takt

var defaultPatch = Patch{
	Name:      "Default",
	MaxVoices: 8,
	Volume:    0.7,
	Oscillator: OscillatorSettings{
		Waveform: Saw,
	},
	AmpEnvelope: EnvelopeSettings{
		Attack:   0.005,
		Decay:    0.25,
		Sustain:  0.6,
		Release:  0.15,
		Velocity: 0.5,
	},
	FilterEnvelope: EnvelopeSettings{
		Attack:  0.002,
		Decay:   0.3,
		Sustain: 0.2,
		Release: 0.2,
	},
	Filter: FilterSettings{
		Mode:      LowPass,
		Cutoff:    800,
		Resonance: 0.4,
	},
	FilterEnvAmount: 2500,
}

// DefaultPatch returns a copy of the patch used when nothing else is
// specified: a filtered saw with a plucky envelope.
func DefaultPatch() Patch {
	return defaultPatch.Copy()
}

// DefaultSong returns a small two pattern demo song, so that takt-play (and
// a fresh sequencer) has something to play out of the box.
func DefaultSong() Song {
	song := Song{
		BPM:    120,
		Length: 16,
		Patches: []Patch{
			defaultPatch,
			{
				Name:      "Bass",
				MaxVoices: 2,
				Volume:    0.8,
				Oscillator: OscillatorSettings{
					Waveform:  Sine,
					Transpose: -12,
				},
				AmpEnvelope: EnvelopeSettings{
					Attack:  0.004,
					Decay:   0.3,
					Sustain: 0.5,
					Release: 0.1,
				},
			},
		},
		Patterns: []Pattern{
			{
				Name:       "melody",
				Patch:      0,
				LoopLength: 4,
				Looping:    true,
				Events: []NoteEvent{
					{Beat: 0, Note: 64, Velocity: 100, Duration: 0.5},
					{Beat: 0.5, Note: 67, Velocity: 80, Duration: 0.5},
					{Beat: 1, Note: 71, Velocity: 90, Duration: 0.5},
					{Beat: 2, Note: 72, Velocity: 110, Duration: 1},
					{Beat: 3, Note: 67, Velocity: 70, Duration: 0.5},
					{Beat: 3.5, Note: 64, Velocity: 70, Duration: 0.5},
				},
			},
			{
				Name:       "bassline",
				Patch:      1,
				LoopLength: 2,
				Looping:    true,
				Events: []NoteEvent{
					{Beat: 0, Note: 40, Velocity: 127, Duration: 0.75},
					{Beat: 1, Note: 40, Velocity: 100, Duration: 0.45},
					{Beat: 1.5, Note: 47, Velocity: 90, Duration: 0.45},
				},
			},
		},
	}
	return song.Copy()
}
