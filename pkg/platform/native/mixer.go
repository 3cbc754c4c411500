// ABOUTME: oto-backed decode-and-mix service
// ABOUTME: Decodes MP3 ranges and plays segments at scheduled device times
package native

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamplay/pkg/platform"
	"github.com/ebitengine/oto/v3"
)

// ErrMixerClosed is returned when scheduling on a closed mixer
var ErrMixerClosed = errors.New("mixer closed")

// output is the part of an oto player the mixer drives
type output interface {
	Play()
	Pause()
	BufferedSize() int
	Close()
}

// otoOutput adapts an oto player to output
type otoOutput struct {
	player *oto.Player
}

func (o otoOutput) Play()             { o.player.Play() }
func (o otoOutput) Pause()            { o.player.Pause() }
func (o otoOutput) BufferedSize() int { return o.player.BufferedSize() }
func (o otoOutput) Close()            { o.player.Close() }

// Mixer implements platform.Mixer on an oto player reading a timeline.
// Segments are placed on the render clock, which runs one oto buffer ahead
// of what is audible; completions fire on the audible clock.
type Mixer struct {
	device      *Device
	decoder     decode.Decoder
	player      output
	timeline    *timeline
	completions *completionScheduler

	mu    sync.Mutex
	state platform.MixerState
}

// NewMixer opens a running mixer on the device
func NewMixer(ctx context.Context, device *Device) (*Mixer, error) {
	tl := newTimeline(device.Channels())

	player, err := device.newPlayer(ctx, tl)
	if err != nil {
		return nil, err
	}

	m := newMixer(device, otoOutput{player: player}, tl)
	log.Printf("Mixer started: %dHz, %d channels", device.SampleRate(), device.Channels())
	return m, nil
}

// newMixer starts a running mixer on out, which reads from tl
func newMixer(device *Device, out output, tl *timeline) *Mixer {
	m := &Mixer{
		device:   device,
		decoder:  decode.NewMP3(),
		player:   out,
		timeline: tl,
		state:    platform.MixerRunning,
	}
	m.completions = newCompletionScheduler(m.audibleFrame)
	go m.completions.Run()

	out.Play()
	return m
}

// Decode turns a run of whole MP3 frames into a segment in the device format
func (m *Mixer) Decode(ctx context.Context, data []byte) (*audio.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seg, err := m.decoder.Decode(data)
	if err != nil {
		return nil, err
	}

	return toDevice(seg, m.device.SampleRate(), m.device.Channels()), nil
}

// audibleFrame is the last frame that left the oto buffer
func (m *Mixer) audibleFrame() int64 {
	queued := int64(m.player.BufferedSize() / m.device.frameBytes())
	if frame := m.timeline.rendered() - queued; frame > 0 {
		return frame
	}
	return 0
}

// CurrentTime returns the render clock: the earliest time a new segment can
// start. It stops while suspended.
func (m *Mixer) CurrentTime() time.Duration {
	return audio.FramesToDuration(int(m.timeline.rendered()), m.device.SampleRate())
}

// Schedule queues seg to start at the given device time
func (m *Mixer) Schedule(seg *audio.Segment, at time.Duration, onEnded func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == platform.MixerClosed {
		return ErrMixerClosed
	}

	seg = toDevice(seg, m.device.SampleRate(), m.device.Channels())
	start := int64(audio.NearestFrame(at, m.device.SampleRate()))

	end := m.timeline.schedule(seg.Samples, start)
	m.completions.add(end, onEnded)
	return nil
}

// State returns the run state
func (m *Mixer) State() platform.MixerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resume restarts output after Suspend
func (m *Mixer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case platform.MixerClosed:
		return ErrMixerClosed
	case platform.MixerRunning:
		return nil
	}

	m.player.Play()
	m.state = platform.MixerRunning
	return nil
}

// Suspend halts output; the device clock stops with it
func (m *Mixer) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case platform.MixerClosed:
		return ErrMixerClosed
	case platform.MixerSuspended:
		return nil
	}

	m.player.Pause()
	m.state = platform.MixerSuspended
	return nil
}

// Close stops output and drops scheduled segments
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == platform.MixerClosed {
		return nil
	}
	m.state = platform.MixerClosed

	m.completions.Stop()
	m.timeline.clear()
	stats := m.completions.Stats()

	m.player.Pause()
	m.player.Close()

	log.Printf("Mixer closed: %d segments scheduled, %d completed", stats.Scheduled, stats.Completed)
	return nil
}
