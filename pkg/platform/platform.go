// ABOUTME: Platform capability interfaces
// ABOUTME: Host, streaming buffer and mixer contracts with their event hooks
package platform

import (
	"context"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

// Host is the injected factory for the output device. Either field may be
// nil when the capability does not exist on this host.
type Host struct {
	// Streaming opens platform-managed streaming buffers
	Streaming StreamingFactory

	// NewMixer creates the decode-and-mix service
	NewMixer func(ctx context.Context) (Mixer, error)
}

// StreamingHandlers are the events a StreamingBuffer emits. Handlers may be
// called from any goroutine and must not block.
type StreamingHandlers struct {
	// OnUpdateEnd fires when an Append has been accepted and the buffer is idle again
	OnUpdateEnd func()

	// OnWaiting fires when playback ran out of buffered data
	OnWaiting func()

	// OnPlaying fires when playback actually starts or resumes
	OnPlaying func()

	// OnPause fires when playback actually pauses
	OnPause func()
}

// StreamingFactory creates streaming buffers for supported MIME types
type StreamingFactory interface {
	// Supports reports whether the MIME type can be streamed
	Supports(mimeType string) bool

	// Open creates a buffer bound to the output device and blocks until the
	// source reports it is open and ready for data.
	Open(ctx context.Context, mimeType string, h StreamingHandlers) (StreamingBuffer, error)
}

// StreamingBuffer accepts compressed byte ranges. Only one Append may be in
// progress at a time; Updating reports whether one is. Handlers are never
// invoked synchronously from a StreamingBuffer method.
type StreamingBuffer interface {
	// Append starts an asynchronous write; OnUpdateEnd signals completion
	Append(data []byte) error

	// Updating reports whether a write is in progress
	Updating() bool

	// EndOfStream seals the stream; a later Append reopens it
	EndOfStream() error

	// Abort drops any write in progress and buffered data not yet played
	Abort() error

	// Play requests playback; OnPlaying confirms it
	Play() error

	// Pause requests a pause; OnPause confirms it
	Pause() error

	// Paused reports whether playback is currently paused
	Paused() bool

	// Detach unbinds the buffer from the output device and releases it
	Detach() error
}

// MixerState is the run state of a Mixer
type MixerState int

const (
	MixerRunning MixerState = iota
	MixerSuspended
	MixerClosed
)

// String returns a human-readable label for the mixer state
func (s MixerState) String() string {
	switch s {
	case MixerRunning:
		return "running"
	case MixerSuspended:
		return "suspended"
	case MixerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Mixer decodes byte ranges and plays segments at scheduled times
type Mixer interface {
	// Decode turns one self-contained compressed range into a segment
	Decode(ctx context.Context, data []byte) (*audio.Segment, error)

	// CurrentTime is the mixer clock: the earliest time Schedule can place a
	// segment. It does not advance while suspended.
	CurrentTime() time.Duration

	// Schedule plays seg starting at the given mixer time. onEnded is called
	// once the segment finished playing, never from within Schedule itself.
	Schedule(seg *audio.Segment, at time.Duration, onEnded func()) error

	// State returns the run state
	State() MixerState

	// Resume restarts a suspended mixer
	Resume() error

	// Suspend halts output and the clock
	Suspend() error

	// Close releases the output device
	Close() error
}
