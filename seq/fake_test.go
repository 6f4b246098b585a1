package seq

import (
	"fmt"
	"sync"
	"time"

	"github.com/taktlab/takt"
)

// fakeInstrument records every call made to it, so the tests can assert on
// what the scheduler did and when.
type fakeInstrument struct {
	mu     sync.Mutex
	calls  []fakeCall
	params map[string]float64
}

type fakeCall struct {
	op       string // "on", "off" or "alloff"
	note     int
	velocity int
	at       time.Time
}

func (f *fakeInstrument) NoteOn(note, velocity int) error {
	if !takt.ValidNote(note, velocity) {
		return fmt.Errorf("note %v velocity %v: %w", note, velocity, takt.ErrInvalidArgument)
	}
	f.record(fakeCall{op: "on", note: note, velocity: velocity, at: time.Now()})
	return nil
}

func (f *fakeInstrument) NoteOff(note int) error {
	f.record(fakeCall{op: "off", note: note, at: time.Now()})
	return nil
}

func (f *fakeInstrument) AllNotesOff() {
	f.record(fakeCall{op: "alloff", at: time.Now()})
}

func (f *fakeInstrument) Read(buffer []float32, offset, count int) (int, error) {
	for i := offset; i < offset+count; i++ {
		buffer[i] = 0
	}
	return count, nil
}

func (f *fakeInstrument) SetParameter(name string, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.params == nil {
		f.params = map[string]float64{}
	}
	f.params[name] = value
	return nil
}

func (f *fakeInstrument) record(c fakeCall) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// ops returns the recorded operations, "on"/"off" with the note appended.
func (f *fakeInstrument) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := make([]string, len(f.calls))
	for i, c := range f.calls {
		if c.op == "alloff" {
			ret[i] = c.op
		} else {
			ret[i] = fmt.Sprintf("%s %d", c.op, c.note)
		}
	}
	return ret
}

func (f *fakeInstrument) countOp(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *fakeInstrument) lastCall(op string) (fakeCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].op == op {
			return f.calls[i], true
		}
	}
	return fakeCall{}, false
}

func (f *fakeInstrument) param(name string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.params[name]
	return v, ok
}

// panicInstrument panics on NoteOn, for testing that the sequencer
// contains instrument crashes.
type panicInstrument struct {
	fakeInstrument
}

func (p *panicInstrument) NoteOn(note, velocity int) error {
	panic("instrument exploded")
}

// waitEvent polls the client channel until a message of type T arrives,
// skipping everything else.
func waitEvent[T any](b *Broker, timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			var zero T
			return zero, false
		}
		msg, ok := TimeoutReceive(b.ToClient, remain)
		if !ok {
			var zero T
			return zero, false
		}
		if ev, ok := msg.(T); ok {
			return ev, true
		}
	}
}

// drainEvents empties the client channel and returns every message of type
// T that was on it.
func drainEvents[T any](b *Broker) []T {
	var ret []T
	for {
		select {
		case msg := <-b.ToClient:
			if ev, ok := msg.(T); ok {
				ret = append(ret, ev)
			}
		default:
			return ret
		}
	}
}

// eventually polls the condition until it holds or the timeout runs out.
func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
