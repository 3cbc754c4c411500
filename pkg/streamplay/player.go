// ABOUTME: High-level Player API for streamed playback
// ABOUTME: Picks a pipeline once at initialization and routes feeds and controls to it
package streamplay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/streamplay/internal/pipeline"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/frame"
	"github.com/Resonate-Protocol/streamplay/pkg/platform"
	"github.com/Resonate-Protocol/streamplay/pkg/platform/native"
	"github.com/google/uuid"
)

// feedFromChunkSize is the read size used by FeedFrom
const feedFromChunkSize = 16 * 1024

// Player buffers compressed audio as it arrives and keeps playback continuous
type Player struct {
	id string

	mu     sync.Mutex
	opts   Options
	state  State
	mode   Mode
	sink   pipeline.Sink
	cancel context.CancelFunc
}

// New creates an uninitialized player
func New() *Player {
	return &Player{
		id:    uuid.NewString(),
		state: StateUninitialized,
	}
}

// ID returns the unique id of this player, used in logs
func (p *Player) ID() string {
	return p.id
}

// Initialize probes the host and opens the pipeline. In streaming-buffer mode
// it blocks until the platform reports the buffer open; Feed returns
// ErrNotReady until then.
func (p *Player) Initialize(ctx context.Context, opts Options) error {
	p.mu.Lock()
	switch p.state {
	case StateDestroyed:
		p.mu.Unlock()
		return ErrDestroyed
	case StateUninitialized:
	default:
		p.mu.Unlock()
		return ErrAlreadyInitialized
	}

	opts = opts.withDefaults()
	p.opts = opts
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.setState(StateInitializing)

	host := opts.Host
	if host == nil {
		host = native.NewHost()
	}

	var err error
	switch {
	case host.Streaming != nil && host.Streaming.Supports(opts.MIMEType):
		err = p.openBuffered(ctx, host.Streaming)
	case host.NewMixer != nil:
		err = p.openManual(ctx, host)
	default:
		err = fmt.Errorf("%w: host offers neither a streaming buffer nor a mixer", ErrPlatformUnavailable)
	}

	if err != nil {
		if !p.alive() {
			return ErrDestroyed
		}
		p.failInitialize()
		return err
	}

	p.mu.Lock()
	if p.state == StateDestroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	mode := p.mode
	p.mu.Unlock()

	p.setStateIf(StateInitializing, StateReady)
	log.Printf("Player %s ready: %s, mode=%s", p.id, opts.MIMEType, mode)
	return nil
}

// openBuffered installs the streaming pipeline and waits for the platform
func (p *Player) openBuffered(ctx context.Context, factory platform.StreamingFactory) error {
	b := pipeline.NewBuffered(factory, pipeline.BufferedConfig{
		MIMEType:     p.opts.MIMEType,
		StallTimeout: p.opts.StallTimeout,
		PauseTimeout: p.opts.PauseTimeout,
		Hooks:        p.hooks(),
	})

	// Installed before Open so feeds during the handshake see ErrNotReady
	if !p.install(b, ModeStreamingBuffer) {
		return ErrDestroyed
	}

	if err := b.Open(ctx); err != nil {
		if errors.Is(err, pipeline.ErrDestroyed) {
			return ErrDestroyed
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("streaming buffer handshake interrupted: %w", ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrPlatformUnavailable, err)
	}
	return nil
}

// openManual creates the mixer and installs the manual decode pipeline
func (p *Player) openManual(ctx context.Context, host *platform.Host) error {
	pattern, ok := frame.PatternFor(p.opts.MIMEType)
	if !ok {
		return fmt.Errorf("%w: no frame sync pattern for %s", ErrPlatformUnavailable, p.opts.MIMEType)
	}

	mixer, err := host.NewMixer(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("mixer start interrupted: %w", ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrPlatformUnavailable, err)
	}

	m := pipeline.NewManual(mixer, pipeline.ManualConfig{
		Pattern:           pattern,
		EndTolerance:      p.opts.EndTolerance,
		MaxDecodeFailures: p.opts.decodeFailureCeiling(),
		Hooks:             p.hooks(),
	})

	if !p.install(m, ModeManualDecode) {
		m.Close()
		return ErrDestroyed
	}
	return nil
}

// install sets the sink unless the player was destroyed meanwhile
func (p *Player) install(sink pipeline.Sink, mode Mode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateDestroyed {
		return false
	}
	p.sink = sink
	p.mode = mode
	return true
}

// failInitialize releases a half-opened pipeline and allows another attempt
func (p *Player) failInitialize() {
	p.mu.Lock()
	if p.state == StateDestroyed {
		p.mu.Unlock()
		return
	}
	sink := p.sink
	p.sink = nil
	p.mode = ModeNone
	p.cancel()
	p.mu.Unlock()

	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Printf("Warning: failed to release pipeline: %v", err)
		}
	}
	p.setState(StateUninitialized)
}

// hooks adapts pipeline signals into state transitions and user callbacks
func (p *Player) hooks() pipeline.Hooks {
	return pipeline.Hooks{
		OnStarted: func() {
			if p.setState(StatePlaying) && p.opts.OnStarted != nil {
				p.opts.OnStarted()
			}
		},
		OnPaused: func() {
			if p.setState(StatePaused) && p.opts.OnPaused != nil {
				p.opts.OnPaused()
			}
		},
		OnStreamEnded: func() {
			if p.alive() && p.opts.OnStreamEnded != nil {
				p.opts.OnStreamEnded()
			}
		},
		OnError: func(err error) {
			if !p.alive() {
				return
			}
			log.Printf("Player %s error: %v", p.id, err)
			if p.opts.OnError != nil {
				p.opts.OnError(err)
			}
		},
	}
}

// setState moves to a new state and notifies OnStateChange. It returns
// false once the player is destroyed.
func (p *Player) setState(to State) bool {
	p.mu.Lock()
	if p.state == StateDestroyed {
		p.mu.Unlock()
		return false
	}
	changed := p.state != to
	p.state = to
	p.mu.Unlock()

	if changed {
		p.notifyStateChange(to)
	}
	return true
}

// setStateIf moves to a new state only from the expected one
func (p *Player) setStateIf(from, to State) {
	p.mu.Lock()
	if p.state != from {
		p.mu.Unlock()
		return
	}
	p.state = to
	p.mu.Unlock()

	p.notifyStateChange(to)
}

func (p *Player) notifyStateChange(s State) {
	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(s)
	}
}

func (p *Player) alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != StateDestroyed
}

// active returns the sink for a data or control call
func (p *Player) active() (pipeline.Sink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateDestroyed {
		return nil, ErrDestroyed
	}
	if p.sink == nil {
		return nil, ErrNotReady
	}
	return p.sink, nil
}

// Feed hands one chunk of compressed audio to the pipeline. It never waits
// for decoding or device writes.
func (p *Player) Feed(chunk []byte) error {
	sink, err := p.active()
	if err != nil {
		return err
	}
	return sink.Feed(chunk)
}

// FeedFrom feeds everything r yields until EOF, ctx cancellation or a feed error
func (p *Player) FeedFrom(ctx context.Context, r io.Reader) error {
	buf := make([]byte, feedFromChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read audio: %w", err)
		}
	}
}

// Flush signals that the source has no more data for now. In manual-decode
// mode the final partial range is decoded so the stream can end; feeding
// again afterwards is allowed.
func (p *Player) Flush() error {
	sink, err := p.active()
	if err != nil {
		return err
	}
	return sink.Flush()
}

// Play starts or resumes output. It reports false if already playing.
func (p *Player) Play(ctx context.Context) (bool, error) {
	sink, err := p.active()
	if err != nil {
		return false, err
	}
	return sink.Play(ctx)
}

// Pause halts output. It reports false if already paused.
func (p *Player) Pause(ctx context.Context) (bool, error) {
	sink, err := p.active()
	if err != nil {
		return false, err
	}
	return sink.Pause(ctx)
}

// Paused reports whether output is halted; true before initialization
func (p *Player) Paused() bool {
	sink, err := p.active()
	if err != nil {
		return true
	}
	return sink.Paused()
}

// Playing reports whether output is running
func (p *Player) Playing() bool {
	return !p.Paused()
}

// State returns the lifecycle state
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Mode returns the pipeline chosen by Initialize
func (p *Player) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Stats returns pipeline counters
func (p *Player) Stats() Stats {
	sink, err := p.active()
	if err != nil {
		return Stats{}
	}
	return sink.Stats()
}

// Destroy stops playback and releases the platform. It is safe to call more
// than once; every other call fails with ErrDestroyed afterwards.
func (p *Player) Destroy() error {
	p.mu.Lock()
	if p.state == StateDestroyed {
		p.mu.Unlock()
		return nil
	}
	p.state = StateDestroyed
	if p.cancel != nil {
		p.cancel()
	}
	sink := p.sink
	p.mu.Unlock()

	p.notifyStateChange(StateDestroyed)

	if sink != nil {
		if err := sink.Close(); err != nil {
			return fmt.Errorf("failed to close pipeline: %w", err)
		}
		stats := sink.Stats()
		log.Printf("Player %s destroyed: %d chunks fed, %d bytes", p.id, stats.ChunksFed, stats.BytesFed)
	}
	return nil
}
