// ABOUTME: Streaming buffer pipeline
// ABOUTME: Queues chunks for a single-writer platform buffer and detects stream end from stalls
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/platform"
)

// BufferedConfig configures a Buffered pipeline
type BufferedConfig struct {
	MIMEType string

	// StallTimeout is how long the buffer must stay dry before the stream is sealed
	StallTimeout time.Duration

	// PauseTimeout bounds how long Pause waits for the platform to confirm
	PauseTimeout time.Duration

	Hooks Hooks
}

// Buffered feeds a platform streaming buffer
type Buffered struct {
	factory platform.StreamingFactory
	cfg     BufferedConfig

	mu           sync.Mutex
	buf          platform.StreamingBuffer
	opened       bool
	sealed       bool
	closed       bool
	userPaused   bool
	queue        [][]byte
	stallTimer   *time.Timer
	stallGen     int
	playWaiters  []chan struct{}
	pauseWaiters []chan struct{}
	stats        Stats
}

// NewBuffered creates a streaming buffer pipeline. Feed fails with
// ErrNotReady until Open returns.
func NewBuffered(factory platform.StreamingFactory, cfg BufferedConfig) *Buffered {
	return &Buffered{
		factory: factory,
		cfg:     cfg,
	}
}

// Open creates the platform buffer and waits until it is ready for data
func (b *Buffered) Open(ctx context.Context) error {
	buf, err := b.factory.Open(ctx, b.cfg.MIMEType, platform.StreamingHandlers{
		OnUpdateEnd: b.handleUpdateEnd,
		OnWaiting:   b.handleWaiting,
		OnPlaying:   b.handlePlaying,
		OnPause:     b.handlePause,
	})
	if err != nil {
		return fmt.Errorf("failed to open streaming buffer: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		if err := buf.Detach(); err != nil {
			log.Printf("Warning: failed to detach streaming buffer: %v", err)
		}
		return ErrDestroyed
	}
	b.buf = buf
	b.opened = true
	b.mu.Unlock()

	return nil
}

// Feed queues a chunk and writes it right away if the buffer is idle
func (b *Buffered) Feed(chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrDestroyed
	}
	if !b.opened {
		return ErrNotReady
	}

	data := make([]byte, len(chunk))
	copy(data, chunk)
	b.queue = append(b.queue, data)
	b.sealed = false
	b.stats.BytesFed += int64(len(chunk))
	b.stats.ChunksFed++

	return b.submit()
}

// submit writes the oldest queued chunk when the buffer is idle. A chunk the
// buffer rejects is dropped and the next one is tried, so a failed Feed must
// not be repeated with the same chunk. Must hold b.mu.
func (b *Buffered) submit() error {
	var errs error
	for len(b.queue) > 0 && !b.buf.Updating() {
		next := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]

		if err := b.buf.Append(next); err != nil {
			b.stats.ChunksDropped++
			errs = errors.Join(errs, fmt.Errorf("failed to append chunk, dropped %d bytes: %w", len(next), err))
			continue
		}
		b.stats.ChunksWritten++
		break
	}
	return errs
}

// handleUpdateEnd reacts to a completed write
func (b *Buffered) handleUpdateEnd() {
	b.mu.Lock()
	if b.closed || b.buf == nil {
		b.mu.Unlock()
		return
	}

	b.stopStallTimer()
	resume := b.buf.Paused() && !b.userPaused
	if err := b.submit(); err != nil {
		log.Printf("Warning: %v", err)
	}
	buf := b.buf
	b.mu.Unlock()

	// Start as soon as any data was accepted, without waiting for Play
	if resume {
		if err := buf.Play(); err != nil {
			log.Printf("Warning: failed to resume playback: %v", err)
		}
	}
}

// handleWaiting arms the stall timer when playback ran dry
func (b *Buffered) handleWaiting() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.sealed || b.buf == nil {
		return
	}

	b.stopStallTimer()
	gen := b.stallGen
	b.stallTimer = time.AfterFunc(b.cfg.StallTimeout, func() { b.stallExpired(gen) })
}

// stopStallTimer cancels a pending stall check. Must hold b.mu.
func (b *Buffered) stopStallTimer() {
	b.stallGen++
	if b.stallTimer != nil {
		b.stallTimer.Stop()
		b.stallTimer = nil
	}
}

// stallExpired seals the stream if nothing arrived during the stall window
func (b *Buffered) stallExpired(gen int) {
	b.mu.Lock()
	if gen != b.stallGen || b.closed || b.sealed || b.buf.Updating() || len(b.queue) > 0 {
		b.mu.Unlock()
		return
	}

	b.stallTimer = nil
	b.sealed = true
	err := b.buf.EndOfStream()
	b.mu.Unlock()

	if err != nil {
		log.Printf("Warning: failed to seal stream: %v", err)
	}
	log.Printf("No data for %v, stream ended", b.cfg.StallTimeout)
	b.cfg.Hooks.streamEnded()
}

func (b *Buffered) handlePlaying() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	releaseWaiters(&b.playWaiters)
	b.mu.Unlock()

	b.cfg.Hooks.started()
}

func (b *Buffered) handlePause() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	releaseWaiters(&b.pauseWaiters)
	b.mu.Unlock()

	b.cfg.Hooks.paused()
}

// Play requests playback and waits for the platform to confirm it
func (b *Buffered) Play(ctx context.Context) (bool, error) {
	b.mu.Lock()
	if err := b.usable(); err != nil {
		b.mu.Unlock()
		return false, err
	}
	if !b.buf.Paused() {
		b.mu.Unlock()
		return false, nil
	}

	b.userPaused = false
	done := make(chan struct{})
	b.playWaiters = append(b.playWaiters, done)
	buf := b.buf
	b.mu.Unlock()

	if err := buf.Play(); err != nil {
		b.dropWaiter(&b.playWaiters, done)
		return false, fmt.Errorf("failed to start playback: %w", err)
	}

	select {
	case <-done:
		return b.confirmed()
	case <-ctx.Done():
		b.dropWaiter(&b.playWaiters, done)
		return false, ctx.Err()
	}
}

// Pause requests a pause. It resolves once the platform confirms or after
// PauseTimeout, whichever comes first.
func (b *Buffered) Pause(ctx context.Context) (bool, error) {
	b.mu.Lock()
	if err := b.usable(); err != nil {
		b.mu.Unlock()
		return false, err
	}
	if b.buf.Paused() {
		b.mu.Unlock()
		return false, nil
	}

	b.userPaused = true
	done := make(chan struct{})
	b.pauseWaiters = append(b.pauseWaiters, done)
	buf := b.buf
	b.mu.Unlock()

	if err := buf.Pause(); err != nil {
		b.dropWaiter(&b.pauseWaiters, done)
		return false, fmt.Errorf("failed to pause playback: %w", err)
	}

	timer := time.NewTimer(b.cfg.PauseTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return b.confirmed()
	case <-timer.C:
		b.dropWaiter(&b.pauseWaiters, done)
		log.Printf("Pause not confirmed after %v, assuming paused", b.cfg.PauseTimeout)
		return true, nil
	case <-ctx.Done():
		b.dropWaiter(&b.pauseWaiters, done)
		return false, ctx.Err()
	}
}

// usable checks the buffer can take control calls. Must hold b.mu.
func (b *Buffered) usable() error {
	if b.closed {
		return ErrDestroyed
	}
	if !b.opened {
		return ErrNotReady
	}
	return nil
}

// confirmed reports a transition unless Close released the waiter
func (b *Buffered) confirmed() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrDestroyed
	}
	return true, nil
}

func (b *Buffered) dropWaiter(waiters *[]chan struct{}, done chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, w := range *waiters {
		if w == done {
			*waiters = append((*waiters)[:i], (*waiters)[i+1:]...)
			return
		}
	}
}

func releaseWaiters(waiters *[]chan struct{}) {
	for _, w := range *waiters {
		close(w)
	}
	*waiters = nil
}

// Flush is a no-op here; the end of the stream is detected from stalls
func (b *Buffered) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usable()
}

// Paused reports whether the platform is paused
func (b *Buffered) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.buf == nil {
		return true
	}
	return b.buf.Paused()
}

// Stats returns pipeline counters
func (b *Buffered) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats
	s.Pending = len(b.queue)
	return s
}

// Close pauses, seals and detaches the platform buffer and drops queued chunks
func (b *Buffered) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopStallTimer()
	b.queue = nil
	releaseWaiters(&b.playWaiters)
	releaseWaiters(&b.pauseWaiters)
	buf := b.buf
	sealed := b.sealed
	b.mu.Unlock()

	if buf == nil {
		return nil
	}

	var errs []error
	if !buf.Paused() {
		errs = append(errs, buf.Pause())
	}
	errs = append(errs, buf.Abort())
	if !sealed {
		errs = append(errs, buf.EndOfStream())
	}
	errs = append(errs, buf.Detach())

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to release streaming buffer: %w", err)
	}
	return nil
}
