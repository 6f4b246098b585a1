package seq

import (
	"sync"
	"time"

	"github.com/taktlab/takt"
)

type (
	// Broker carries messages between the engine goroutines and the client:
	// the sequencer and the note-off worker publish events to ToClient, the
	// audio path hands chunks to the detector through ToDetector. There is
	// exactly one channel per recipient, so the ownership of every message
	// is always clear.
	//
	// All channels are buffered and all sends go through TrySend, so no
	// sender ever blocks on a receiver: if a client stops consuming events,
	// the engine drops them and keeps running.
	//
	// The CloseXXX channels ask a worker to quit. They have a capacity of 1
	// and are sent to with TrySend; a failed send means someone else already
	// asked, which is just as good. When a worker exits its run loop, it
	// closes its FinishedXXX channel (these are only ever closed, never sent
	// to), so a closer can wait for the handover with TimeoutReceive.
	Broker struct {
		ToClient   chan any
		ToDetector chan MsgToDetector

		CloseDetector chan struct{}
		CloseNoteOffs chan struct{}

		FinishedDetector chan struct{}
		FinishedNoteOffs chan struct{}

		bufferPool sync.Pool
	}

	// MsgToDetector is either an audio chunk to analyze (Data is a
	// *takt.AudioBuffer obtained from GetAudioBuffer; the detector returns
	// it to the pool) or a func() to run on the detector goroutine.
	MsgToDetector struct {
		Data any
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToClient:         make(chan any, 1024),
		ToDetector:       make(chan MsgToDetector, 1024),
		CloseDetector:    make(chan struct{}, 1),
		CloseNoteOffs:    make(chan struct{}, 1),
		FinishedDetector: make(chan struct{}),
		FinishedNoteOffs: make(chan struct{}),
		bufferPool:       sync.Pool{New: func() any { return &takt.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty audio buffer from the buffer pool. The
// buffers get recycled, so the audio path does not allocate on every chunk.
func (b *Broker) GetAudioBuffer() *takt.AudioBuffer {
	return b.bufferPool.Get().(*takt.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the pool, resetting its length
// to zero (but keeping the capacity).
func (b *Broker) PutAudioBuffer(buf *takt.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a message to a channel without ever blocking. Returns false
// if the channel was full and the message was dropped.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
		return true
	default:
		return false
	}
}

// TimeoutReceive receives from a channel, giving up after the timeout. ok
// is false if the timeout was reached or the channel was closed.
func TimeoutReceive[T any](c <-chan T, timeout time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(timeout):
		return v, false
	}
}
