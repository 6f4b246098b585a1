package gomidi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/taktlab/takt"
	"github.com/taktlab/takt/seq"
)

type (
	// Context owns the MIDI driver and routes incoming notes straight to an
	// instrument: open one of the InputDevices and point the context at an
	// instrument with Connect. Triggering happens on the driver callback;
	// the instrument's own lock makes that safe next to a running
	// sequencer.
	Context struct {
		driver *rtmididrv.Driver
		broker *seq.Broker

		mu      sync.Mutex
		current drivers.In
		stop    func()
		target  takt.Instrument

		devices            []Device
		devicesInitialized bool
	}

	// Device is one MIDI input port.
	Device struct {
		context *Context
		in      drivers.In
	}
)

// NewContext opens the MIDI driver. A nil broker is fine; with one, every
// incoming note is also published on the client channel. If no driver is
// available the context still works, it just has no devices.
func NewContext(broker *seq.Broker) *Context {
	c := &Context{broker: broker}
	// nothing to be done if this fails; a nil driver means no devices
	c.driver, _ = rtmididrv.New()
	return c
}

// InputDevices iterates over the available MIDI input ports.
func (c *Context) InputDevices(yield func(seq.MIDIDevice) bool) {
	if c.devicesInitialized {
		for _, device := range c.devices {
			if !yield(device) {
				break
			}
		}
		return
	}
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		device := Device{context: c, in: in}
		c.devices = append(c.devices, device)
		if !yield(device) {
			break
		}
	}
	c.devicesInitialized = true
}

// TryToOpenBy opens the first device whose name starts with namePrefix, or
// just the first device if takeFirst is set.
func (c *Context) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	for device := range c.InputDevices {
		if takeFirst || strings.HasPrefix(device.String(), namePrefix) {
			return device.Open()
		}
	}
	if takeFirst {
		return errors.New("no MIDI inputs available")
	}
	return fmt.Errorf("no MIDI input starting with %q", namePrefix)
}

// Open opens the device for listening, closing the previously open one
// first. Opening the device that is already open does nothing.
func (d Device) Open() error {
	c := d.context
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == d.in {
		return nil
	}
	c.closeCurrentLocked()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, c.handleMessage)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.current, c.stop = d.in, stop
	return nil
}

func (d Device) String() string {
	return d.in.String()
}

// Connect routes incoming notes to the instrument. A nil instrument
// disconnects.
func (c *Context) Connect(instrument takt.Instrument) {
	c.mu.Lock()
	c.target = instrument
	c.mu.Unlock()
}

func (c *Context) HasDeviceOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.IsOpen()
}

// Close stops listening and shuts the driver down.
func (c *Context) Close() {
	c.mu.Lock()
	c.closeCurrentLocked()
	c.mu.Unlock()
	if c.driver != nil {
		c.driver.Close()
	}
}

func (c *Context) closeCurrentLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.current != nil && c.current.IsOpen() {
		c.current.Close()
	}
	c.current = nil
}

func (c *Context) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) {
		// a note on with velocity 0 is a note off in running status
		if velocity == 0 {
			c.noteOff(int(key))
		} else {
			c.noteOn(int(key), int(velocity))
		}
		return
	}
	if msg.GetNoteOff(&channel, &key, &velocity) {
		c.noteOff(int(key))
	}
}

func (c *Context) noteOn(note, velocity int) {
	c.mu.Lock()
	target := c.target
	c.mu.Unlock()
	if target != nil {
		target.NoteOn(note, velocity)
	}
	if c.broker != nil {
		seq.TrySend(c.broker.ToClient, any(seq.NoteOnEvent{
			Pattern:  "midi",
			Note:     note,
			Velocity: velocity,
			Time:     time.Now(),
		}))
	}
}

func (c *Context) noteOff(note int) {
	c.mu.Lock()
	target := c.target
	c.mu.Unlock()
	if target != nil {
		target.NoteOff(note)
	}
	if c.broker != nil {
		seq.TrySend(c.broker.ToClient, any(seq.NoteOffEvent{
			Pattern: "midi",
			Note:    note,
			Time:    time.Now(),
		}))
	}
}
