package seq

import "time"

// The event types sent to Broker.ToClient. Everything on that channel is
// informational: the engine never waits for a client to consume an event,
// and a slow client just misses some.
type (
	// NoteOnEvent is sent when a pattern triggers a note.
	NoteOnEvent struct {
		Pattern  string
		Note     int
		Velocity int
		Beat     float64       // absolute beat of the trigger
		Cycle    int           // which repetition of the loop it belongs to
		Time     time.Time     // wall clock time of the trigger
		Duration time.Duration // how long the note will be held, at the trigger tempo
	}

	// NoteOffEvent is sent when the deferred release of a triggered note
	// fires. It fires even after the transport stops.
	NoteOffEvent struct {
		Pattern  string
		Note     int
		Velocity int
		Beat     float64 // absolute beat the note ends on
		Cycle    int
		Time     time.Time // wall clock time of the release
	}

	// BeatEvent reports the transport position, throttled to roughly the
	// screen refresh rate no matter how short the tick interval is.
	BeatEvent struct {
		Beat float64 // absolute position
		Pos  float64 // position inside the reference loop
		Loop float64 // reference loop length, in beats
		BPM  float64
	}

	// PatternEvent is sent when a pattern is registered or removed.
	PatternEvent struct {
		Name  string
		Index int
		Added bool
	}

	// BPMEvent is sent when the tempo changes.
	BPMEvent struct {
		BPM float64
	}

	// TransportEvent is sent when the transport starts or stops.
	TransportEvent struct {
		Playing bool
	}

	// LevelsEvent carries the peak and RMS levels of one analyzed chunk,
	// per channel (0 = left, 1 = right), in linear amplitude.
	LevelsEvent struct {
		Peak [2]float32
		RMS  [2]float32
	}
)
