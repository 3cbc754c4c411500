// ABOUTME: Player configuration
// ABOUTME: Callbacks, MIME type, host injection and timing defaults
package streamplay

import (
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/platform"
)

const (
	// DefaultMIMEType is used when Options.MIMEType is empty
	DefaultMIMEType = "audio/mpeg"

	// DefaultStallTimeout is how long a dry streaming buffer waits before sealing
	DefaultStallTimeout = 500 * time.Millisecond

	// DefaultPauseTimeout bounds the wait for a pause confirmation
	DefaultPauseTimeout = 250 * time.Millisecond

	// DefaultEndTolerance is the play-head slack for end-of-stream detection
	DefaultEndTolerance = 100 * time.Millisecond

	// DefaultMaxDecodeFailures is the consecutive decode failures tolerated
	DefaultMaxDecodeFailures = 8
)

// Options holds player configuration
type Options struct {
	// OnStarted is called when audio starts or resumes
	OnStarted func()

	// OnPaused is called when audio pauses
	OnPaused func()

	// OnStreamEnded is called once the buffered audio has played out
	OnStreamEnded func()

	// OnError is called when the stream fails asynchronously
	OnError func(error)

	// OnStateChange is called after every lifecycle transition
	OnStateChange func(State)

	// MIMEType of the fed bytes (default: audio/mpeg)
	MIMEType string

	// Host provides the platform capabilities (default: native.NewHost())
	Host *platform.Host

	// StallTimeout is the streaming-buffer stall debounce (default: 500ms)
	StallTimeout time.Duration

	// PauseTimeout bounds how long Pause waits for confirmation (default: 250ms)
	PauseTimeout time.Duration

	// EndTolerance is the manual-decode end detection slack (default: 100ms)
	EndTolerance time.Duration

	// MaxDecodeFailures before a manual-decode stream is unplayable
	// (default: 8, negative retries forever)
	MaxDecodeFailures int
}

// withDefaults returns a copy with zero values replaced by defaults
func (o Options) withDefaults() Options {
	if o.MIMEType == "" {
		o.MIMEType = DefaultMIMEType
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = DefaultStallTimeout
	}
	if o.PauseTimeout <= 0 {
		o.PauseTimeout = DefaultPauseTimeout
	}
	if o.EndTolerance <= 0 {
		o.EndTolerance = DefaultEndTolerance
	}
	if o.MaxDecodeFailures == 0 {
		o.MaxDecodeFailures = DefaultMaxDecodeFailures
	}
	return o
}

// decodeFailureCeiling maps the option onto the pipeline setting, where 0 is unbounded
func (o Options) decodeFailureCeiling() int {
	if o.MaxDecodeFailures < 0 {
		return 0
	}
	return o.MaxDecodeFailures
}
