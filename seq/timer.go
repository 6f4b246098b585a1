package seq

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/taktlab/takt"
)

type (
	// noteOffTimer delivers the deferred note releases. Pattern processing
	// pushes one deadline per triggered note; a single worker goroutine
	// pops them in deadline order, calls NoteOff on the instrument and
	// emits the NoteOffEvent. The worker runs for the whole lifetime of the
	// sequencer, so releases scheduled before a transport stop still fire
	// after it. Closing the worker fires whatever is still queued.
	noteOffTimer struct {
		broker *Broker
		mu     sync.Mutex
		queue  noteOffQueue
		wake   chan struct{}
	}

	pendingNoteOff struct {
		fireAt     time.Time
		instrument takt.Instrument
		event      NoteOffEvent
	}

	noteOffQueue []pendingNoteOff
)

func newNoteOffTimer(broker *Broker) *noteOffTimer {
	t := &noteOffTimer{
		broker: broker,
		wake:   make(chan struct{}, 1),
	}
	go t.run()
	return t
}

// schedule queues a release to fire at the given time. Safe to call from
// any goroutine, also with the sequencer lock held: the worker never takes
// that lock.
func (t *noteOffTimer) schedule(instrument takt.Instrument, fireAt time.Time, event NoteOffEvent) {
	t.mu.Lock()
	heap.Push(&t.queue, pendingNoteOff{fireAt: fireAt, instrument: instrument, event: event})
	t.mu.Unlock()
	TrySend(t.wake, struct{}{})
}

func (t *noteOffTimer) run() {
	defer close(t.broker.FinishedNoteOffs)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		t.mu.Lock()
		for len(t.queue) > 0 && !t.queue[0].fireAt.After(time.Now()) {
			p := heap.Pop(&t.queue).(pendingNoteOff)
			t.mu.Unlock()
			t.fire(p)
			t.mu.Lock()
		}
		var wait time.Duration
		pending := len(t.queue) > 0
		if pending {
			wait = time.Until(t.queue[0].fireAt)
		}
		t.mu.Unlock()
		if !pending {
			select {
			case <-t.wake:
			case <-t.broker.CloseNoteOffs:
				t.drain()
				return
			}
			continue
		}
		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-t.wake:
		case <-t.broker.CloseNoteOffs:
			t.drain()
			return
		}
	}
}

// drain fires every release still queued, in deadline order, so closing the
// worker never leaves a triggered note without its release.
func (t *noteOffTimer) drain() {
	t.mu.Lock()
	for len(t.queue) > 0 {
		p := heap.Pop(&t.queue).(pendingNoteOff)
		t.mu.Unlock()
		t.fire(p)
		t.mu.Lock()
	}
	t.mu.Unlock()
}

func (t *noteOffTimer) fire(p pendingNoteOff) {
	defer func() {
		if err := recover(); err != nil {
			TrySend(t.broker.ToClient, any(Alert{
				Name:     "NoteOffTimer",
				Priority: Error,
				Message:  fmt.Sprintf("deferred release panicked: %v", err),
				Duration: defaultAlertDuration,
			}))
		}
	}()
	p.instrument.NoteOff(p.event.Note)
	p.event.Time = time.Now()
	TrySend(t.broker.ToClient, any(p.event))
}

func (q noteOffQueue) Len() int           { return len(q) }
func (q noteOffQueue) Less(i, j int) bool { return q[i].fireAt.Before(q[j].fireAt) }
func (q noteOffQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *noteOffQueue) Push(x any) {
	*q = append(*q, x.(pendingNoteOff))
}

func (q *noteOffQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
