package seq

import (
	"reflect"
	"testing"

	"github.com/taktlab/takt"
)

// hit is a matched event flattened for comparison: the event's beat inside
// the cycle, the cycle number, and the absolute beat of the trigger.
type hit struct {
	beat  float64
	cycle int
	abs   float64
}

func collect(hits []matched) []hit {
	ret := make([]hit, 0, len(hits))
	for _, h := range hits {
		ret = append(ret, hit{beat: h.event.Beat, cycle: h.cycle, abs: h.beat})
	}
	return ret
}

func loopingPattern(loopLength float64, beats ...float64) *Pattern {
	data := takt.Pattern{LoopLength: loopLength, Looping: true}
	for _, b := range beats {
		data.Events = append(data.Events, takt.NoteEvent{Beat: b, Note: 60, Velocity: 100})
	}
	return newPattern(data, nil)
}

func TestMatchForwardIntervals(t *testing.T) {
	p := loopingPattern(4, 0, 1.5, 3)
	steps := []struct {
		last, next float64
		want       []hit
	}{
		{0, 1, []hit{{0, 0, 0}}},
		{1, 3, []hit{{1.5, 0, 1.5}}},
		{3, 3.9, []hit{{3, 0, 3}}},
		{3.9, 4.2, []hit{{0, 1, 4}}},
		{4.2, 5.5, nil}, // the ending edge belongs to the next interval
		{5.5, 6, []hit{{1.5, 1, 5.5}}},
	}
	for _, step := range steps {
		got := collect(p.match(step.last, step.next))
		want := step.want
		if want == nil {
			want = []hit{}
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("match(%v, %v) = %v, want %v", step.last, step.next, got, want)
		}
	}
}

func TestMatchHalfOpenEdges(t *testing.T) {
	p := loopingPattern(4, 2)
	if got := collect(p.match(0, 2)); len(got) != 0 {
		t.Fatalf("interval ending on the event matched it: %v", got)
	}
	want := []hit{{2, 0, 2}}
	if got := collect(p.match(2, 2.5)); !reflect.DeepEqual(got, want) {
		t.Fatalf("interval starting on the event = %v, want %v", got, want)
	}
}

func TestMatchWrapAroundLoop(t *testing.T) {
	p := loopingPattern(4, 0, 1.5, 3)
	steps := []struct {
		last, next float64
		want       []hit
	}{
		{0, 3.5, []hit{{0, 0, 0}, {1.5, 0, 1.5}, {3, 0, 3}}},
		{3.5, 4.5, []hit{{0, 1, 4}}},
		{4.5, 7.6, []hit{{1.5, 1, 5.5}, {3, 1, 7}}},
		{7.6, 8.1, []hit{{0, 2, 8}}},
	}
	for _, step := range steps {
		got := collect(p.match(step.last, step.next))
		if !reflect.DeepEqual(got, step.want) {
			t.Fatalf("match(%v, %v) = %v, want %v", step.last, step.next, got, step.want)
		}
	}
}

// An interval spanning one or more whole cycles triggers every event
// exactly once, never once per cycle: a transport jump must not stack up
// repeated triggers of the same note.
func TestMatchWholeCycleSkip(t *testing.T) {
	p := loopingPattern(4, 0, 1.5, 3)
	if got := collect(p.match(0, 0.5)); !reflect.DeepEqual(got, []hit{{0, 0, 0}}) {
		t.Fatalf("first interval = %v", got)
	}
	want := []hit{{0, 1, 4}, {1.5, 0, 1.5}, {3, 0, 3}}
	if got := collect(p.match(0.5, 4.5)); !reflect.DeepEqual(got, want) {
		t.Fatalf("one whole cycle = %v, want %v", got, want)
	}
	want = []hit{{0, 2, 8}, {1.5, 1, 5.5}, {3, 1, 7}}
	if got := collect(p.match(4.5, 12.5)); !reflect.DeepEqual(got, want) {
		t.Fatalf("two whole cycles = %v, want %v", got, want)
	}
}

func TestMatchBackward(t *testing.T) {
	p := loopingPattern(4, 0, 1.5, 3)
	if got := collect(p.match(2, 3)); !reflect.DeepEqual(got, []hit{{0, 0, 2}}) {
		t.Fatalf("forward warmup = %v", got)
	}
	// moving from beat 3 back to beat 1 covers the event at the pattern's
	// start (abs 2) and, wrapping backward, the one at abs 1 from the
	// cycle before the start
	want := []hit{{0, 0, 2}, {3, -1, 1}}
	if got := collect(p.match(3, 1)); !reflect.DeepEqual(got, want) {
		t.Fatalf("backward = %v, want %v", got, want)
	}
	// scrubbing forward over the same range hits the same events again
	if got := collect(p.match(1, 3)); !reflect.DeepEqual(got, want) {
		t.Fatalf("forward after backward = %v, want %v", got, want)
	}
}

func TestMatchNonLoopingFirstCycleOnly(t *testing.T) {
	data := takt.Pattern{
		LoopLength: 4,
		Events: []takt.NoteEvent{
			{Beat: 0.5, Note: 60, Velocity: 100},
			{Beat: 3.5, Note: 62, Velocity: 100},
			{Beat: 5, Note: 64, Velocity: 100}, // beyond the loop length, can never play
		},
	}
	p := newPattern(data, nil)
	steps := []struct {
		last, next float64
		want       []hit
	}{
		{10, 11, []hit{{0.5, 0, 10.5}}},
		{11, 14, []hit{{3.5, 0, 13.5}}},
		{14, 18, nil},
		{18, 22, nil},
	}
	for _, step := range steps {
		got := collect(p.match(step.last, step.next))
		want := step.want
		if want == nil {
			want = []hit{}
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("match(%v, %v) = %v, want %v", step.last, step.next, got, want)
		}
	}
	// scratching back into the first cycle replays it
	want := []hit{{3.5, 0, 13.5}}
	if got := collect(p.match(22, 13)); !reflect.DeepEqual(got, want) {
		t.Fatalf("backward into first cycle = %v, want %v", got, want)
	}
}

func TestMatchSkipsOutOfRangeEvents(t *testing.T) {
	p := loopingPattern(4, -1, 2, 4, 7)
	if got := collect(p.match(0, 4)); !reflect.DeepEqual(got, []hit{{2, 0, 2}}) {
		t.Fatalf("first cycle = %v, want only the in-range event", got)
	}
	if got := collect(p.match(4, 8)); !reflect.DeepEqual(got, []hit{{2, 1, 6}}) {
		t.Fatalf("second cycle = %v", got)
	}
}

func TestMatchStartBeatCapturedOnce(t *testing.T) {
	p := loopingPattern(4, 1)
	if got := collect(p.match(5, 6)); len(got) != 0 {
		t.Fatalf("first interval = %v, want none", got)
	}
	// the event sits one beat after the captured start, not at absolute 1
	want := []hit{{1, 0, 6}}
	if got := collect(p.match(6, 7)); !reflect.DeepEqual(got, want) {
		t.Fatalf("second interval = %v, want %v", got, want)
	}
	if start := p.startBeat.Value(); start != 5 {
		t.Fatalf("start beat = %v, want 5", start)
	}
}

func TestMatchEmptyIntervalCapturesStart(t *testing.T) {
	p := loopingPattern(4, 1)
	if got := p.match(3, 3); got != nil {
		t.Fatalf("empty interval matched %v", got)
	}
	if start := p.startBeat.Value(); start != 3 {
		t.Fatalf("start beat = %v, want 3", start)
	}
	want := []hit{{1, 0, 4}}
	if got := collect(p.match(3.5, 4.5)); !reflect.DeepEqual(got, want) {
		t.Fatalf("match after empty capture = %v, want %v", got, want)
	}
}

func TestNewPatternCopiesAndClamps(t *testing.T) {
	data := takt.Pattern{
		LoopLength: -2,
		Looping:    true,
		Events: []takt.NoteEvent{
			{Beat: 3, Note: 60},
			{Beat: 0, Note: 62},
			{Beat: 1.5, Note: 64},
		},
	}
	p := newPattern(data, nil)
	if p.loopLength != takt.MinLoopLength {
		t.Fatalf("loop length = %v, want clamped to %v", p.loopLength, takt.MinLoopLength)
	}
	beats := []float64{p.events[0].Beat, p.events[1].Beat, p.events[2].Beat}
	if !reflect.DeepEqual(beats, []float64{0, 1.5, 3}) {
		t.Fatalf("events not sorted: %v", beats)
	}
	data.Events[0].Note = 99
	for _, e := range p.events {
		if e.Note == 99 {
			t.Fatal("pattern shares event storage with the data it was created from")
		}
	}
}
