// ABOUTME: Shared oto output device
// ABOUTME: Lazily opens the single process-wide oto context
package native

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	// DefaultSampleRate is the device rate used by NewHost
	DefaultSampleRate = 44100

	// DefaultChannels is the device channel count used by NewHost
	DefaultChannels = 2

	// DefaultLatency is how much audio a player keeps queued in oto
	DefaultLatency = 100 * time.Millisecond

	bytesPerSample = 2 // oto plays signed 16-bit little-endian
)

// Device is an oto output context. The context is created on first use and
// then shared by every player on the device.
type Device struct {
	sampleRate int
	channels   int
	latency    time.Duration

	once   sync.Once
	otoCtx *oto.Context
	ready  chan struct{}
	err    error
}

var (
	defaultDevice     *Device
	defaultDeviceOnce sync.Once
)

// DefaultDevice returns the process-wide device at the default format
func DefaultDevice() *Device {
	defaultDeviceOnce.Do(func() {
		defaultDevice = NewDevice(DefaultSampleRate, DefaultChannels)
	})
	return defaultDevice
}

// NewDevice describes an output device. oto supports one context per
// process, so only one Device should ever be opened.
func NewDevice(sampleRate, channels int) *Device {
	return &Device{
		sampleRate: sampleRate,
		channels:   channels,
		latency:    DefaultLatency,
	}
}

// SampleRate returns the device sample rate
func (d *Device) SampleRate() int {
	return d.sampleRate
}

// Channels returns the device channel count
func (d *Device) Channels() int {
	return d.channels
}

// frameBytes is the size of one interleaved output frame
func (d *Device) frameBytes() int {
	return d.channels * bytesPerSample
}

// bufferBytes is the oto player buffer size for the configured latency
func (d *Device) bufferBytes() int {
	frames := int(int64(d.latency) * int64(d.sampleRate) / int64(time.Second))
	return frames * d.frameBytes()
}

// Context opens the oto context if needed and waits until it is ready
func (d *Device) Context(ctx context.Context) (*oto.Context, error) {
	d.once.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   d.sampleRate,
			ChannelCount: d.channels,
			Format:       oto.FormatSignedInt16LE,
		}

		otoCtx, ready, err := oto.NewContext(op)
		if err != nil {
			d.err = fmt.Errorf("failed to create oto context: %w", err)
			return
		}

		d.otoCtx = otoCtx
		d.ready = ready
		log.Printf("Audio output initialized: %dHz, %d channels", d.sampleRate, d.channels)
	})

	if d.err != nil {
		return nil, d.err
	}

	select {
	case <-d.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return d.otoCtx, nil
}

// newPlayer creates an oto player on the device with the configured latency
func (d *Device) newPlayer(ctx context.Context, src io.Reader) (*oto.Player, error) {
	otoCtx, err := d.Context(ctx)
	if err != nil {
		return nil, err
	}

	player := otoCtx.NewPlayer(src)
	player.SetBufferSize(d.bufferBytes())
	return player, nil
}
