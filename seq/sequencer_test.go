package seq

import (
	"reflect"
	"testing"
	"time"

	"github.com/taktlab/takt"
)

func testSequencer(t *testing.T) (*Sequencer, *Broker) {
	t.Helper()
	b := NewBroker()
	s := NewSequencer(b)
	t.Cleanup(s.Close)
	return s, b
}

func TestTickAdvancesByTempo(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 1, Note: 60, Velocity: 100, Duration: 0.1}},
	}, fake)
	s.tick(0.25) // quarter second at 120 bpm is half a beat
	if got := s.Beat(); got != 0.5 {
		t.Fatalf("beat after one tick = %v, want 0.5", got)
	}
	s.tick(0.25)
	if n := fake.countOp("on"); n != 0 {
		t.Fatalf("note triggered before its beat, ons = %v", n)
	}
	s.tick(0.25) // crosses beat 1
	if got := s.Beat(); got != 1.5 {
		t.Fatalf("beat = %v, want 1.5", got)
	}
	if n := fake.countOp("on"); n != 1 {
		t.Fatalf("ons = %v, want 1", n)
	}
	ons := drainEvents[NoteOnEvent](b)
	if len(ons) != 1 {
		t.Fatalf("got %v NoteOnEvents, want 1", len(ons))
	}
	ev := ons[0]
	if ev.Note != 60 || ev.Velocity != 100 || ev.Beat != 1 || ev.Cycle != 0 {
		t.Fatalf("unexpected NoteOnEvent %+v", ev)
	}
	if ev.Duration != 50*time.Millisecond {
		t.Fatalf("duration = %v, want 50ms", ev.Duration)
	}
}

func TestSkipConsumedByNextTick(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events: []takt.NoteEvent{
			{Beat: 0, Note: 60, Velocity: 100},
			{Beat: 2, Note: 62, Velocity: 100},
		},
	}, fake)
	s.tick(0.25)
	s.Skip(4)
	if got := s.Beat(); got != 0.5 {
		t.Fatalf("skip moved the beat immediately, beat = %v", got)
	}
	s.tick(0)
	if got := s.Beat(); got != 4.5 {
		t.Fatalf("beat after skip tick = %v, want 4.5", got)
	}
	// the skipped range is matched like any other interval, each event once
	var beats []float64
	for _, ev := range drainEvents[NoteOnEvent](b) {
		beats = append(beats, ev.Beat)
	}
	if !reflect.DeepEqual(beats, []float64{0, 4, 2}) {
		t.Fatalf("trigger beats = %v, want [0 4 2]", beats)
	}
	s.tick(0)
	if got := s.Beat(); got != 4.5 {
		t.Fatalf("skip applied twice, beat = %v", got)
	}
}

func TestScratchDrivesTransport(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events: []takt.NoteEvent{
			{Beat: 0, Note: 60, Velocity: 100},
			{Beat: 3, Note: 62, Velocity: 100},
		},
	}, fake)
	s.SetScratching(true)
	s.SetBeat(2)
	s.tick(123) // wall clock time does not advance a scratched transport
	if got := s.Beat(); got != 2 {
		t.Fatalf("beat = %v, want the scratched position 2", got)
	}
	if n := fake.countOp("on"); n != 1 {
		t.Fatalf("ons after scratch to 2 = %v, want 1", n)
	}
	s.SetBeat(0.5)
	s.tick(0)
	if n := fake.countOp("on"); n != 1 {
		t.Fatalf("moving back to 0.5 retriggered, ons = %v", n)
	}
	s.SetBeat(-0.5)
	s.tick(0)
	if got := s.Beat(); got != -0.5 {
		t.Fatalf("beat = %v, want -0.5", got)
	}
	// crossing the event at beat 0 backward plays it again
	if n := fake.countOp("on"); n != 2 {
		t.Fatalf("ons after backward crossing = %v, want 2", n)
	}
	s.SetScratching(false)
	s.tick(0.25)
	if got := s.Beat(); got != 0 {
		t.Fatalf("beat after leaving scratch mode = %v, want 0", got)
	}
	var notes []int
	for _, ev := range drainEvents[NoteOnEvent](b) {
		notes = append(notes, ev.Note)
	}
	if !reflect.DeepEqual(notes, []int{60, 60}) {
		t.Fatalf("triggered notes = %v, want [60 60]", notes)
	}
}

func TestDeferredRelease(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 2, Note: 64, Velocity: 100, Duration: 0.5}},
	}, fake)
	s.tick(1.0) // two beats at 120 bpm
	s.tick(0.25)
	on, ok := fake.lastCall("on")
	if !ok || on.note != 64 {
		t.Fatalf("note not triggered, calls %v", fake.ops())
	}
	ons := drainEvents[NoteOnEvent](b)
	if len(ons) != 1 || ons[0].Duration != 250*time.Millisecond {
		t.Fatalf("NoteOnEvents = %+v, want one with 250ms duration", ons)
	}
	if !eventually(2*time.Second, func() bool { return fake.countOp("off") > 0 }) {
		t.Fatal("deferred release never fired")
	}
	off, _ := fake.lastCall("off")
	if off.note != 64 {
		t.Fatalf("released note = %v, want 64", off.note)
	}
	elapsed := off.at.Sub(on.at)
	if elapsed < 150*time.Millisecond || elapsed > 600*time.Millisecond {
		t.Fatalf("release fired %v after the trigger, want about 250ms", elapsed)
	}
	ev, ok := waitEvent[NoteOffEvent](b, time.Second)
	if !ok {
		t.Fatal("no NoteOffEvent")
	}
	if ev.Note != 64 || ev.Beat != 2.5 || ev.Cycle != 0 {
		t.Fatalf("unexpected NoteOffEvent %+v", ev)
	}
}

func TestReleaseFiresAfterStop(t *testing.T) {
	s, _ := testSequencer(t)
	fake := &fakeInstrument{}
	s.SetBPM(600)
	s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 0, Note: 60, Velocity: 100, Duration: 2}},
	}, fake)
	s.Start()
	if !s.Running() {
		t.Fatal("not running after Start")
	}
	if !eventually(2*time.Second, func() bool { return fake.countOp("on") > 0 }) {
		t.Fatal("note never triggered")
	}
	s.Stop()
	if s.Running() {
		t.Fatal("still running after Stop")
	}
	if n := fake.countOp("alloff"); n == 0 {
		t.Fatal("Stop did not silence the instrument")
	}
	if n := fake.countOp("off"); n != 0 {
		t.Fatalf("release fired already at stop time, offs = %v", n)
	}
	// 2 beats at 600 bpm is 200ms; the release outlives the transport
	if !eventually(2*time.Second, func() bool { return fake.countOp("off") > 0 }) {
		t.Fatal("release did not fire after Stop")
	}
}

func TestTransportEvents(t *testing.T) {
	s, b := testSequencer(t)
	s.Start()
	ev, ok := waitEvent[TransportEvent](b, time.Second)
	if !ok || !ev.Playing {
		t.Fatalf("TransportEvent after Start = %+v, %v", ev, ok)
	}
	s.Stop()
	ev, ok = waitEvent[TransportEvent](b, time.Second)
	if !ok || ev.Playing {
		t.Fatalf("TransportEvent after Stop = %+v, %v", ev, ok)
	}
	s.Stop() // stopping again is a no-op
	if evs := drainEvents[TransportEvent](b); len(evs) != 0 {
		t.Fatalf("extra transport events %v", evs)
	}
}

func TestRemovePattern(t *testing.T) {
	s, b := testSequencer(t)
	fa, fb, fc := &fakeInstrument{}, &fakeInstrument{}, &fakeInstrument{}
	pa := s.AddPattern(takt.Pattern{Name: "A", LoopLength: 4}, fa)
	pb := s.AddPattern(takt.Pattern{Name: "B", LoopLength: 4}, fb)
	pc := s.AddPattern(takt.Pattern{Name: "C", LoopLength: 4}, fc)
	drainEvents[PatternEvent](b)
	s.RemovePattern(pb)
	if n := fb.countOp("alloff"); n == 0 {
		t.Fatal("removed pattern's instrument not silenced")
	}
	if pa.Index() != 0 || pc.Index() != 1 {
		t.Fatalf("indices after removal = %v, %v, want 0, 1", pa.Index(), pc.Index())
	}
	if got := s.Patterns(); len(got) != 2 || got[0] != pa || got[1] != pc {
		t.Fatalf("patterns after removal = %v", got)
	}
	evs := drainEvents[PatternEvent](b)
	if len(evs) != 1 || evs[0].Name != "B" || evs[0].Added || evs[0].Index != 1 {
		t.Fatalf("pattern events = %+v", evs)
	}
	s.RemovePattern(pb)
	if evs := drainEvents[PatternEvent](b); len(evs) != 0 {
		t.Fatalf("removing twice emitted %v", evs)
	}
}

func TestSetBPM(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	s.AddPattern(takt.Pattern{LoopLength: 4}, fake)
	if v, ok := fake.param("bpm"); !ok || v != 120 {
		t.Fatalf("bpm not pushed on AddPattern, got %v %v", v, ok)
	}
	s.SetBPM(-5)
	if got := s.BPM(); got != takt.MinBPM {
		t.Fatalf("bpm = %v, want clamped to %v", got, takt.MinBPM)
	}
	if v, _ := fake.param("bpm"); v != takt.MinBPM {
		t.Fatalf("instrument bpm = %v, want %v", v, takt.MinBPM)
	}
	ev, ok := waitEvent[BPMEvent](b, time.Second)
	if !ok || ev.BPM != takt.MinBPM {
		t.Fatalf("BPMEvent = %+v, %v", ev, ok)
	}
	s.SetBPM(takt.MinBPM) // no change, no event
	if evs := drainEvents[BPMEvent](b); len(evs) != 0 {
		t.Fatalf("unchanged tempo emitted %v", evs)
	}
	s.SetBPM(240)
	if v, _ := fake.param("bpm"); v != 240 {
		t.Fatalf("instrument bpm = %v, want 240", v)
	}
}

func TestPatternPanicIsolated(t *testing.T) {
	s, b := testSequencer(t)
	bad := &panicInstrument{}
	good := &fakeInstrument{}
	s.AddPattern(takt.Pattern{
		Name:       "bad",
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 0, Note: 60, Velocity: 100}},
	}, bad)
	s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 0, Note: 62, Velocity: 100}},
	}, good)
	s.tick(0.25)
	if got := s.Beat(); got != 0.5 {
		t.Fatalf("transport stalled on the panic, beat = %v", got)
	}
	if n := good.countOp("on"); n != 1 {
		t.Fatalf("healthy pattern ons = %v, want 1", n)
	}
	alerts := drainEvents[Alert](b)
	if len(alerts) != 1 || alerts[0].Priority != Error {
		t.Fatalf("alerts = %+v, want one error", alerts)
	}
}

func TestSetEnabled(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	p := s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 0, Note: 60, Velocity: 100}},
	}, fake)
	p.SetEnabled(false)
	if fake.countOp("alloff") == 0 {
		t.Fatal("disabling did not silence the instrument")
	}
	s.tick(1.0)
	s.tick(0.5)
	if n := fake.countOp("on"); n != 0 {
		t.Fatalf("disabled pattern triggered %v notes", n)
	}
	p.SetEnabled(true)
	if !p.Enabled() {
		t.Fatal("not enabled")
	}
	s.tick(0.5) // beat 3 to 4; the pattern's cycle starts where it rejoined
	if n := fake.countOp("on"); n != 1 {
		t.Fatalf("ons after enabling = %v, want 1", n)
	}
	ons := drainEvents[NoteOnEvent](b)
	if len(ons) != 1 || ons[0].Beat != 3 {
		t.Fatalf("trigger events = %+v, want one at beat 3", ons)
	}
}

func TestSetEventsLive(t *testing.T) {
	s, _ := testSequencer(t)
	fake := &fakeInstrument{}
	p := s.AddPattern(takt.Pattern{
		LoopLength: 4,
		Looping:    true,
		Events:     []takt.NoteEvent{{Beat: 0, Note: 60, Velocity: 100}},
	}, fake)
	s.tick(0.25)
	p.SetEvents([]takt.NoteEvent{{Beat: 1, Note: 62, Velocity: 100}})
	s.tick(0.25)
	s.tick(0.25)
	want := []string{"on 60", "on 62"}
	if got := fake.ops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if evs := p.Events(); len(evs) != 1 || evs[0].Note != 62 {
		t.Fatalf("events = %+v", evs)
	}
}

func TestBeatEvents(t *testing.T) {
	s, b := testSequencer(t)
	fake := &fakeInstrument{}
	s.AddPattern(takt.Pattern{LoopLength: 8, Looping: true}, fake)
	s.tick(0.25)
	evs := drainEvents[BeatEvent](b)
	if len(evs) != 1 {
		t.Fatalf("beat events = %v, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Beat != 0.5 || ev.Pos != 0.5 || ev.Loop != 8 || ev.BPM != 120 {
		t.Fatalf("unexpected BeatEvent %+v", ev)
	}
	s.tick(0) // within the notify throttle window
	if evs := drainEvents[BeatEvent](b); len(evs) != 0 {
		t.Fatalf("throttle let %v events through", len(evs))
	}
}

func TestBeatEventReferenceLoop(t *testing.T) {
	s, b := testSequencer(t)
	s.SetReferenceLoop(16)
	s.tick(0)
	evs := drainEvents[BeatEvent](b)
	if len(evs) != 1 || evs[0].Loop != 16 {
		t.Fatalf("beat events = %+v, want one with loop 16", evs)
	}
}

func TestSetTickIntervalClamps(t *testing.T) {
	s, _ := testSequencer(t)
	s.SetTickInterval(0)
	s.mu.Lock()
	got := s.tickInterval
	s.mu.Unlock()
	if got != minTickInterval {
		t.Fatalf("tick interval = %v, want %v", got, minTickInterval)
	}
}
