// ABOUTME: Manual decode pipeline
// ABOUTME: Splits bytes on frame boundaries, decodes ranges and schedules them gaplessly
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/frame"
	"github.com/Resonate-Protocol/streamplay/pkg/platform"
)

// ManualConfig configures a Manual pipeline
type ManualConfig struct {
	// Pattern is the frame sync pattern of the configured codec
	Pattern frame.SyncPattern

	// EndTolerance is how close the play-head must be to the mixer clock
	// for the last segment's completion to count as end of stream
	EndTolerance time.Duration

	// MaxDecodeFailures is how many failed decodes of the same range are
	// retried before the stream is declared unplayable (0 retries forever).
	// A retry that gained a frame boundary starts a new count.
	MaxDecodeFailures int

	// MaxRetryBytes caps how large a failing range may grow before the
	// stream is declared unplayable (0 means DefaultMaxRetryBytes)
	MaxRetryBytes int

	Hooks Hooks
}

// DefaultMaxRetryBytes bounds the undecodable bytes held for retry
const DefaultMaxRetryBytes = 4 << 20

// Manual decodes and schedules segments itself, for hosts without a
// streaming buffer.
type Manual struct {
	mixer platform.Mixer
	cfg   ManualConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	pending    []byte
	nextStart  time.Duration // play-head: earliest start of the next segment
	decoding   bool
	rerun      bool
	flush      bool
	failures   int
	failedLen  int // length of the last range that failed
	ended      bool
	unplayable bool
	closed     bool
	stats      Stats
}

// NewManual creates a manual decode pipeline over a mixer
func NewManual(mixer platform.Mixer, cfg ManualConfig) *Manual {
	if cfg.MaxRetryBytes <= 0 {
		cfg.MaxRetryBytes = DefaultMaxRetryBytes
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manual{
		mixer:  mixer,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Feed appends a chunk to the pending buffer and decodes whatever is
// complete. It never waits for the decode.
func (m *Manual) Feed(chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrDestroyed
	}
	if m.unplayable {
		return ErrUnplayableStream
	}

	m.pending = append(m.pending, chunk...)
	m.ended = false
	m.stats.BytesFed += int64(len(chunk))
	m.stats.ChunksFed++

	m.processQueue()
	return nil
}

// processQueue takes ownership of the bytes up to the last frame boundary and
// starts decoding them. One decode runs at a time; a call during a decode is
// replayed when it completes. Must hold m.mu.
func (m *Manual) processQueue() {
	if m.closed || m.unplayable || len(m.pending) == 0 {
		return
	}
	if m.decoding {
		m.rerun = true
		return
	}

	// A leading tag is metadata; wait for all of it and drop it
	if tag, needMore := frame.TagSize(m.pending); needMore || len(m.pending) < tag {
		if !m.flush {
			return
		}
	} else if tag > 0 {
		log.Printf("Skipping %d byte ID3v2 tag", tag)
		m.pending = m.pending[tag:]
		if len(m.pending) == 0 {
			m.flush = false
			return
		}
	}

	final := m.flush
	decodeRange, remainder, ok := frame.Split(m.pending, m.cfg.Pattern)
	if final {
		decodeRange, remainder, ok = m.pending, nil, true
		m.flush = false
	}
	if !ok {
		return
	}

	m.pending = remainder
	m.decoding = true
	m.wg.Add(1)
	go m.decode(decodeRange, final)
}

// Flush decodes the bytes after the last frame boundary as well, so the final
// frame of a finished source plays and the stream can end. Later feeds are
// handled as usual.
func (m *Manual) Flush() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	if m.unplayable {
		m.mu.Unlock()
		return ErrUnplayableStream
	}

	m.flush = len(m.pending) > 0
	m.processQueue()
	ended := m.checkEnded()
	m.mu.Unlock()

	if ended {
		m.cfg.Hooks.streamEnded()
	}
	return nil
}

// decode runs one range through the mixer and schedules the result. A final
// range is the flushed tail of the source and is dropped if it fails.
func (m *Manual) decode(data []byte, final bool) {
	defer m.wg.Done()

	seg, err := m.mixer.Decode(m.ctx, data)

	m.mu.Lock()
	m.decoding = false
	if m.closed {
		m.mu.Unlock()
		return
	}

	var notify []func()

	if err == nil {
		err = m.schedule(seg, &notify)
	}

	if err != nil && final {
		log.Printf("Warning: dropping %d undecodable bytes at end of stream: %v", len(data), err)
		m.stats.DecodeFailures++
		err = nil
	}

	if err != nil {
		// Put the range back in front so it is retried with more data
		m.pending = append(data, m.pending...)
		if len(data) > m.failedLen {
			m.failures = 0
		}
		m.failedLen = len(data)
		m.failures++
		m.stats.DecodeFailures++
		log.Printf("Warning: failed to decode %d bytes (attempt %d), waiting for more data: %v",
			len(data), m.failures, err)

		tooMany := m.cfg.MaxDecodeFailures > 0 && m.failures >= m.cfg.MaxDecodeFailures
		if tooMany || len(data) > m.cfg.MaxRetryBytes {
			log.Printf("Giving up after %d failed decodes of a %d byte range, dropping %d bytes",
				m.failures, len(data), len(m.pending))
			m.unplayable = true
			m.pending = nil
			notify = append(notify, func() { m.cfg.Hooks.failed(ErrUnplayableStream) })
		}
	}

	if m.rerun {
		m.rerun = false
		m.processQueue()
	}
	if final && m.checkEnded() {
		notify = append(notify, m.cfg.Hooks.streamEnded)
	}
	m.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// schedule places seg on the play-head. Must hold m.mu.
func (m *Manual) schedule(seg *audio.Segment, notify *[]func()) error {
	first := m.nextStart == 0

	start := m.nextStart
	if now := m.mixer.CurrentTime(); now > start {
		start = now
	}

	if err := m.mixer.Schedule(seg, start, m.segmentEnded); err != nil {
		return fmt.Errorf("failed to schedule segment: %w", err)
	}

	m.nextStart = start + seg.Duration()
	m.failures = 0
	m.failedLen = 0
	m.stats.SegmentsScheduled++

	if first {
		*notify = append(*notify, m.cfg.Hooks.started)
	}
	return nil
}

// segmentEnded is the completion signal of every scheduled segment. It is the
// only end-of-stream detector in this mode since the byte source never says
// it is done.
func (m *Manual) segmentEnded() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	drained := m.checkEnded()
	m.mu.Unlock()

	if drained {
		m.cfg.Hooks.streamEnded()
	}
}

// checkEnded marks the stream ended once nothing is pending and the play-head
// has caught up with the mixer clock. Must hold m.mu.
func (m *Manual) checkEnded() bool {
	if len(m.pending) > 0 || m.decoding || m.ended || m.unplayable {
		return false
	}
	if m.nextStart-m.mixer.CurrentTime() > m.cfg.EndTolerance {
		return false
	}
	m.ended = true
	return true
}

// Play resumes a suspended mixer
func (m *Manual) Play(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrDestroyed
	}
	suspended := m.mixer.State() == platform.MixerSuspended
	m.mu.Unlock()

	if !suspended {
		return false, nil
	}
	if err := m.mixer.Resume(); err != nil {
		return false, fmt.Errorf("failed to resume output: %w", err)
	}

	m.cfg.Hooks.started()
	return true, nil
}

// Pause suspends a running mixer
func (m *Manual) Pause(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrDestroyed
	}
	running := m.mixer.State() == platform.MixerRunning
	m.mu.Unlock()

	if !running {
		return false, nil
	}
	if err := m.mixer.Suspend(); err != nil {
		return false, fmt.Errorf("failed to suspend output: %w", err)
	}

	m.cfg.Hooks.paused()
	return true, nil
}

// Paused reports whether the mixer is not running
func (m *Manual) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return true
	}
	return m.mixer.State() != platform.MixerRunning
}

// PlayHead returns the earliest start time of the next segment
func (m *Manual) PlayHead() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextStart
}

// Stats returns pipeline counters
func (m *Manual) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Pending = len(m.pending)
	return s
}

// Close stops scheduling and closes the mixer. A decode still in flight is
// cancelled and its result discarded.
func (m *Manual) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.pending = nil
	m.cancel()
	m.mu.Unlock()

	if err := m.mixer.Close(); err != nil {
		return fmt.Errorf("failed to close mixer: %w", err)
	}
	return nil
}

// wait blocks until no decode is in flight
func (m *Manual) wait() {
	m.wg.Wait()
}
