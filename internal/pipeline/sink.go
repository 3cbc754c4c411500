// ABOUTME: Common pipeline interface, lifecycle hooks and errors
// ABOUTME: Shared by the manual decode and streaming buffer pipelines
package pipeline

import (
	"context"
	"errors"
)

var (
	// ErrDestroyed is returned when a pipeline is used after Close
	ErrDestroyed = errors.New("player destroyed")

	// ErrNotReady is returned when data arrives before the pipeline opened
	ErrNotReady = errors.New("player not ready")

	// ErrPlatformUnavailable is returned when the host offers no usable playback capability
	ErrPlatformUnavailable = errors.New("no playback capability available")

	// ErrUnplayableStream is returned once repeated decode failures gave up on the stream
	ErrUnplayableStream = errors.New("stream is unplayable")
)

// Hooks are the lifecycle signals a pipeline raises. Nil hooks are skipped.
// They are never called while a pipeline lock is held.
type Hooks struct {
	OnStarted     func()
	OnPaused      func()
	OnStreamEnded func()
	OnError       func(error)
}

func (h Hooks) started() {
	if h.OnStarted != nil {
		h.OnStarted()
	}
}

func (h Hooks) paused() {
	if h.OnPaused != nil {
		h.OnPaused()
	}
}

func (h Hooks) streamEnded() {
	if h.OnStreamEnded != nil {
		h.OnStreamEnded()
	}
}

func (h Hooks) failed(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Sink is an active playback pipeline
type Sink interface {
	// Feed hands one chunk of compressed audio to the pipeline
	Feed(chunk []byte) error

	// Play resumes output; false means it was already playing
	Play(ctx context.Context) (bool, error)

	// Pause halts output; false means it was already paused
	Pause(ctx context.Context) (bool, error)

	// Paused reports whether output is currently halted
	Paused() bool

	// Flush tells the pipeline the source has no more data for now
	Flush() error

	// Stats returns counters for display and diagnostics
	Stats() Stats

	// Close stops output and releases platform resources
	Close() error
}

// Stats are pipeline counters
type Stats struct {
	BytesFed          int64
	ChunksFed         int64
	ChunksWritten     int64
	ChunksDropped     int64 // rejected by the streaming buffer
	SegmentsScheduled int64
	DecodeFailures    int64
	Pending           int // bytes (manual) or chunks (buffered) waiting
}
