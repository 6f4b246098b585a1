package takt

import (
	"errors"
	"io"
)

// SampleRate is the fixed playback rate of the engine, in Hz. Sample rate
// conversion is out of scope; samples are assumed to be recorded at this
// rate.
const SampleRate = 44100

type (
	// AudioBuffer is interleaved stereo audio: even indices are the left
	// channel, odd indices the right.
	AudioBuffer []float32

	// AudioSource fills buffers with interleaved stereo samples. It returns
	// the number of float32 values written; io.EOF signals that the source
	// has nothing more to play.
	AudioSource interface {
		ReadAudio(buffer AudioBuffer) (int, error)
	}

	// AudioContext is the backend playing audio sources; the oto package
	// implements it on the system audio device.
	AudioContext interface {
		Play(source AudioSource) CloserWaiter
		Close() error
	}

	// CloserWaiter is a handle to ongoing playback: Wait blocks until the
	// source is exhausted, Close stops the playback early.
	CloserWaiter interface {
		io.Closer
		Wait()
	}
)

// Source returns an AudioSource that plays the buffer once from the start.
func (b AudioBuffer) Source() AudioSource {
	return &bufferSource{buffer: b}
}

type bufferSource struct {
	buffer AudioBuffer
	pos    int
}

func (s *bufferSource) ReadAudio(buffer AudioBuffer) (int, error) {
	if s.pos >= len(s.buffer) {
		return 0, io.EOF
	}
	n := copy(buffer, s.buffer[s.pos:])
	s.pos += n
	return n, nil
}

// InstrumentSource adapts an Instrument into an endless AudioSource, pulling
// audio straight from its Read method. Use Mixer to play several
// instruments at once.
func InstrumentSource(instrument Instrument) AudioSource {
	return &instrumentSource{instrument: instrument}
}

type instrumentSource struct {
	instrument Instrument
}

func (s *instrumentSource) ReadAudio(buffer AudioBuffer) (int, error) {
	return s.instrument.Read(buffer, 0, len(buffer))
}

// Mixer sums any number of instruments into one AudioSource. Routing,
// per-bus effects and the like are out of scope; each patch carries its own
// volume and pan instead.
type Mixer struct {
	instruments []Instrument
	scratch     []float32
}

var errNoInstruments = errors.New("mixer has no instruments")

// NewMixer returns a Mixer playing all the given instruments.
func NewMixer(instruments ...Instrument) *Mixer {
	return &Mixer{instruments: instruments}
}

func (m *Mixer) ReadAudio(buffer AudioBuffer) (int, error) {
	if len(m.instruments) == 0 {
		return 0, errNoInstruments
	}
	if cap(m.scratch) < len(buffer) {
		m.scratch = make([]float32, len(buffer))
	}
	scratch := m.scratch[:len(buffer)]
	for i := range buffer {
		buffer[i] = 0
	}
	for _, instrument := range m.instruments {
		if _, err := instrument.Read(scratch, 0, len(scratch)); err != nil {
			return 0, err
		}
		for i, v := range scratch {
			buffer[i] += v
		}
	}
	return len(buffer), nil
}
