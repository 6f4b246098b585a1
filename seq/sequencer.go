package seq

import (
	"fmt"
	"sync"
	"time"

	"github.com/taktlab/takt"
)

// Transport timing defaults. The tick interval bounds the trigger jitter of
// pattern events; beat notifications are throttled separately so a fast
// tick does not flood the client channel.
const (
	defaultTickInterval = 2 * time.Millisecond
	minTickInterval     = 500 * time.Microsecond
	beatNotifyInterval  = time.Second / 60
	defaultLoopLength   = 4.0
	closeTimeout        = 3 * time.Second
)

// Sequencer is the transport clock: it advances a beat counter in real time
// and hands every pattern the interval covered since the previous tick.
// Notes are triggered synchronously on the tick goroutine; their releases
// are deferred to the note-off worker. All state is guarded by one lock,
// held only for the duration of a tick, never across a channel send.
//
// A Sequencer is created stopped. Patterns can be added, removed and edited
// whether the transport runs or not.
type Sequencer struct {
	broker *Broker
	timer  *noteOffTimer

	mu           sync.Mutex
	patterns     []*Pattern
	beat         float64
	bpm          float64
	refLoop      float64
	running      bool
	scratching   bool
	scratchBeat  float64
	pendingSkip  float64
	tickInterval time.Duration
	lastNotify   time.Time
	stop         chan struct{}
	done         chan struct{}
}

// NewSequencer returns a stopped sequencer at beat 0 and 120 bpm, and
// starts its note-off worker. Close the sequencer to stop the worker.
func NewSequencer(broker *Broker) *Sequencer {
	return &Sequencer{
		broker:       broker,
		timer:        newNoteOffTimer(broker),
		bpm:          120,
		refLoop:      defaultLoopLength,
		tickInterval: defaultTickInterval,
	}
}

// Start launches the transport clock from the current beat position.
// Starting a running sequencer does nothing.
func (s *Sequencer) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	interval := s.tickInterval
	s.mu.Unlock()
	go s.run(stop, done, interval)
	TrySend(s.broker.ToClient, any(TransportEvent{Playing: true}))
}

// Stop halts the clock and silences every pattern's instrument. Releases
// already scheduled on the note-off worker still fire. Stopping a stopped
// sequencer does nothing.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	patterns := append([]*Pattern(nil), s.patterns...)
	s.mu.Unlock()
	close(stop)
	TimeoutReceive(done, closeTimeout)
	for _, p := range patterns {
		p.instrument.AllNotesOff()
	}
	TrySend(s.broker.ToClient, any(TransportEvent{Playing: false}))
}

// Close stops the transport and shuts down the note-off worker, waiting
// for it with a bounded timeout. The sequencer must not be used after.
func (s *Sequencer) Close() {
	s.Stop()
	TrySend(s.broker.CloseNoteOffs, struct{}{})
	TimeoutReceive(s.broker.FinishedNoteOffs, closeTimeout)
}

func (s *Sequencer) run(stop, done chan struct{}, interval time.Duration) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.tick(now.Sub(last).Seconds())
			last = now
		}
	}
}

// tick advances the transport by dt seconds of wall clock time and matches
// every pattern against the resulting beat interval. Notifications are
// dispatched only after the lock is released, so a full client channel can
// never stall the clock.
func (s *Sequencer) tick(dt float64) {
	var notifications []any
	s.mu.Lock()
	lastBeat := s.beat
	nextBeat := lastBeat
	if s.scratching {
		nextBeat = s.scratchBeat
	} else {
		nextBeat += dt * s.bpm / 60
	}
	nextBeat += s.pendingSkip
	s.pendingSkip = 0
	now := time.Now()
	if nextBeat != lastBeat {
		for _, p := range s.patterns {
			events, alert := s.processPattern(p, lastBeat, nextBeat, now)
			for _, e := range events {
				notifications = append(notifications, e)
			}
			if alert != nil {
				notifications = append(notifications, *alert)
			}
		}
		s.beat = nextBeat
		if s.scratching {
			s.scratchBeat = nextBeat
		}
	}
	if now.Sub(s.lastNotify) >= beatNotifyInterval {
		s.lastNotify = now
		loop := s.refLoop
		if len(s.patterns) > 0 {
			loop = s.patterns[0].loopLength
		}
		notifications = append(notifications, BeatEvent{
			Beat: s.beat,
			Pos:  beatMod(s.beat, loop),
			Loop: loop,
			BPM:  s.bpm,
		})
	}
	s.mu.Unlock()
	for _, n := range notifications {
		TrySend(s.broker.ToClient, n)
	}
}

// processPattern runs one pattern's matching with a recover around it: a
// panicking instrument gets reported as an alert and silences only its own
// pattern for that tick, never the whole transport.
func (s *Sequencer) processPattern(p *Pattern, lastBeat, nextBeat float64, now time.Time) (events []NoteOnEvent, alert *Alert) {
	defer func() {
		if err := recover(); err != nil {
			alert = &Alert{
				Name:     "SequencerTick",
				Priority: Error,
				Message:  fmt.Sprintf("pattern %q: %v", p.name, err),
				Duration: defaultAlertDuration,
			}
		}
	}()
	events = p.process(lastBeat, nextBeat, s.bpm, now, s.timer)
	return events, nil
}

// AddPattern registers a pattern playing on the given instrument and
// returns the handle for controlling it. The data is copied. Safe while
// the transport runs; the pattern starts matching on the next tick.
func (s *Sequencer) AddPattern(data takt.Pattern, instrument takt.Instrument) *Pattern {
	p := newPattern(data, instrument)
	p.seq = s
	s.mu.Lock()
	p.index = len(s.patterns)
	s.patterns = append(s.patterns, p)
	index, bpm := p.index, s.bpm
	s.mu.Unlock()
	instrument.SetParameter("bpm", bpm) // not all backends have the parameter
	TrySend(s.broker.ToClient, any(PatternEvent{Name: p.name, Index: index, Added: true}))
	return p
}

// RemovePattern unregisters a pattern, silencing its instrument first so no
// voice it triggered keeps ringing. The remaining patterns are re-indexed.
// Removing a pattern that is not registered does nothing.
func (s *Sequencer) RemovePattern(p *Pattern) {
	s.mu.Lock()
	index := -1
	for i, q := range s.patterns {
		if q == p {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		return
	}
	p.instrument.AllNotesOff()
	s.patterns = append(s.patterns[:index], s.patterns[index+1:]...)
	for i := index; i < len(s.patterns); i++ {
		s.patterns[i].index = i
	}
	s.mu.Unlock()
	TrySend(s.broker.ToClient, any(PatternEvent{Name: p.name, Index: index, Added: false}))
}

// Patterns returns a snapshot of the registered patterns in index order.
func (s *Sequencer) Patterns() []*Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Pattern(nil), s.patterns...)
}

// SetBPM changes the tempo, clamping values below takt.MinBPM instead of
// rejecting them: the transport must keep advancing. The tempo is also
// pushed to every registered instrument for tempo synced modulation.
func (s *Sequencer) SetBPM(bpm float64) {
	if bpm < takt.MinBPM {
		bpm = takt.MinBPM
	}
	s.mu.Lock()
	if s.bpm == bpm {
		s.mu.Unlock()
		return
	}
	s.bpm = bpm
	instruments := make([]takt.Instrument, 0, len(s.patterns))
	for _, p := range s.patterns {
		instruments = append(instruments, p.instrument)
	}
	s.mu.Unlock()
	for _, instrument := range instruments {
		instrument.SetParameter("bpm", bpm)
	}
	TrySend(s.broker.ToClient, any(BPMEvent{BPM: bpm}))
}

func (s *Sequencer) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// Beat returns the current transport position.
func (s *Sequencer) Beat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beat
}

// SetBeat moves the transport. In scratch mode this is the external drive:
// the next tick processes the interval from the current position to the
// given one, in whichever direction it lies. Outside scratch mode the
// position is simply reset, without matching the events in between.
func (s *Sequencer) SetBeat(beat float64) {
	s.mu.Lock()
	if s.scratching {
		s.scratchBeat = beat
	} else {
		s.beat = beat
	}
	s.mu.Unlock()
}

// Skip nudges the transport by the given number of beats, negative to jump
// backward. Skips accumulate and are consumed by the next tick, which
// matches the skipped range like any other interval.
func (s *Sequencer) Skip(beats float64) {
	s.mu.Lock()
	s.pendingSkip += beats
	s.mu.Unlock()
}

// SetScratching toggles scratch mode. While scratching the clock does not
// advance on its own; the position is driven with SetBeat, backward if need
// be. Entering scratch mode freezes the transport where it is.
func (s *Sequencer) SetScratching(scratching bool) {
	s.mu.Lock()
	s.scratching = scratching
	s.scratchBeat = s.beat
	s.mu.Unlock()
}

func (s *Sequencer) Scratching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scratching
}

func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetReferenceLoop sets the loop length BeatEvents report the position
// against when no pattern is registered.
func (s *Sequencer) SetReferenceLoop(beats float64) {
	if beats < takt.MinLoopLength {
		beats = takt.MinLoopLength
	}
	s.mu.Lock()
	s.refLoop = beats
	s.mu.Unlock()
}

// SetTickInterval sets the clock resolution: shorter means less trigger
// jitter at more scheduling overhead. Takes effect the next time the
// transport is started.
func (s *Sequencer) SetTickInterval(interval time.Duration) {
	if interval < minTickInterval {
		interval = minTickInterval
	}
	s.mu.Lock()
	s.tickInterval = interval
	s.mu.Unlock()
}
