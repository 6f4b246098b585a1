package oto

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/taktlab/takt"
)

// Context plays audio sources on the system audio device. The underlying
// device context can be opened only once per process and never torn down;
// NewContext hands out the shared one and Close just suspends it, so
// open/close round trips work the way callers expect.
type Context struct {
	ctx *oto.Context
}

// bufferDuration is the device buffer length: long enough to survive
// scheduling hiccups, short enough that live triggered notes do not lag.
const bufferDuration = 50 * time.Millisecond

var (
	contextOnce sync.Once
	sharedCtx   *oto.Context
	contextErr  error
)

// NewContext opens (or resumes) the audio device at the engine's sample
// rate, in stereo float32.
func NewContext() (*Context, error) {
	contextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   takt.SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   bufferDuration,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			contextErr = err
			return
		}
		<-ready
		sharedCtx = ctx
	})
	if contextErr != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", contextErr)
	}
	if err := sharedCtx.Resume(); err != nil {
		return nil, fmt.Errorf("cannot resume oto context: %w", err)
	}
	return &Context{ctx: sharedCtx}, nil
}

// Play starts playing the source and returns the handle for stopping or
// waiting on it. Endless sources (a live instrument or mixer) play until
// closed; Wait only returns for finite ones.
func (c *Context) Play(source takt.AudioSource) takt.CloserWaiter {
	reader := &sourceReader{source: source}
	player := c.ctx.NewPlayer(reader)
	player.Play()
	return &playback{player: player, reader: reader}
}

// Close suspends the audio device.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// sourceReader adapts an AudioSource to the io.Reader oto pulls from,
// serializing the samples as little endian float32.
type sourceReader struct {
	source  takt.AudioSource
	mu      sync.Mutex
	done    bool
	scratch takt.AudioBuffer
}

func (r *sourceReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return 0, io.EOF
	}
	values := len(p) / 4
	if values == 0 {
		return 0, nil
	}
	if cap(r.scratch) < values {
		r.scratch = make(takt.AudioBuffer, values)
	}
	buf := r.scratch[:values]
	n, err := r.source.ReadAudio(buf)
	if err != nil && err != io.EOF {
		return 0, err
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(buf[i]))
	}
	if n == 0 && err == io.EOF {
		r.done = true
		return 0, io.EOF
	}
	return 4 * n, nil
}

func (r *sourceReader) finish() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

type playback struct {
	player *oto.Player
	reader *sourceReader
}

// Wait blocks until the source is exhausted and the device buffer has
// played out.
func (p *playback) Wait() {
	for p.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
}

// Close stops the playback without waiting for the source to end.
func (p *playback) Close() error {
	p.reader.finish()
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
