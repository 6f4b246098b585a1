package seq

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/taktlab/takt"
)

// Detector computes the stereo peak and RMS levels of the audio passing
// through an analyzed source. It runs on its own goroutine so the vector
// math never happens on the audio path; if it cannot keep up, chunks are
// dropped rather than queued up.
type Detector struct {
	broker *Broker
	tmp    [2][]float32
}

func NewDetector(broker *Broker) *Detector {
	return &Detector{broker: broker}
}

// Run consumes analysis messages until a close request arrives, emitting a
// LevelsEvent per analyzed chunk. Call it on a dedicated goroutine; it
// closes FinishedDetector when done.
func (d *Detector) Run() {
	defer close(d.broker.FinishedDetector)
	for {
		select {
		case <-d.broker.CloseDetector:
			return
		case msg := <-d.broker.ToDetector:
			switch data := msg.Data.(type) {
			case *takt.AudioBuffer:
				levels, ok := d.analyze(*data)
				d.broker.PutAudioBuffer(data)
				if ok {
					TrySend(d.broker.ToClient, any(levels))
				}
			case func():
				data()
			}
		}
	}
}

// analyze computes the per channel levels of one interleaved chunk.
func (d *Detector) analyze(buffer takt.AudioBuffer) (LevelsEvent, bool) {
	frames := len(buffer) / 2
	if frames == 0 {
		return LevelsEvent{}, false
	}
	for i := range d.tmp {
		if cap(d.tmp[i]) < frames {
			d.tmp[i] = make([]float32, frames)
		}
	}
	var levels LevelsEvent
	for chn := 0; chn < 2; chn++ {
		o := d.tmp[0][:frames]
		for i := 0; i < frames; i++ {
			o[i] = buffer[2*i+chn]
		}
		squared := vek32.Mul_Into(d.tmp[1][:frames], o, o)
		levels.RMS[chn] = float32(math.Sqrt(float64(vek32.Mean(squared))))
		vek32.Abs_Inplace(o)
		levels.Peak[chn] = vek32.Max(o)
	}
	return levels, true
}

// NewAnalyzedSource wraps an audio source so that everything read from it
// is also handed to the detector. The copy goes through the broker's
// buffer pool and a non-blocking send, so the wrapping adds no latency and
// no allocation to the audio path.
func NewAnalyzedSource(source takt.AudioSource, broker *Broker) takt.AudioSource {
	return &analyzedSource{source: source, broker: broker}
}

type analyzedSource struct {
	source takt.AudioSource
	broker *Broker
}

func (a *analyzedSource) ReadAudio(buffer takt.AudioBuffer) (int, error) {
	n, err := a.source.ReadAudio(buffer)
	if n > 0 {
		chunk := a.broker.GetAudioBuffer()
		*chunk = append(*chunk, buffer[:n]...)
		if !TrySend(a.broker.ToDetector, MsgToDetector{Data: chunk}) {
			a.broker.PutAudioBuffer(chunk)
		}
	}
	return n, err
}
