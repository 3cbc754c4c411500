// ABOUTME: Player lifecycle state, pipeline mode and errors
// ABOUTME: Enumerations with string labels and re-exported pipeline errors
package streamplay

import (
	"errors"

	"github.com/Resonate-Protocol/streamplay/internal/pipeline"
)

// State is the lifecycle state of a Player
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StatePlaying
	StatePaused
	StateDestroyed
)

// String returns a human-readable label for the state
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Mode is the pipeline a Player settled on during Initialize
type Mode int

const (
	ModeNone Mode = iota
	ModeStreamingBuffer
	ModeManualDecode
)

// String returns a human-readable label for the mode
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeStreamingBuffer:
		return "streaming-buffer"
	case ModeManualDecode:
		return "manual-decode"
	default:
		return "unknown"
	}
}

// Stats are pipeline counters
type Stats = pipeline.Stats

var (
	// ErrDestroyed is returned by every call after Destroy
	ErrDestroyed = pipeline.ErrDestroyed

	// ErrNotReady is returned when data arrives before initialization finished
	ErrNotReady = pipeline.ErrNotReady

	// ErrPlatformUnavailable is returned when the host cannot play the stream
	ErrPlatformUnavailable = pipeline.ErrPlatformUnavailable

	// ErrUnplayableStream is reported once decode retries are exhausted
	ErrUnplayableStream = pipeline.ErrUnplayableStream

	// ErrAlreadyInitialized is returned by a second Initialize
	ErrAlreadyInitialized = errors.New("player already initialized")
)
