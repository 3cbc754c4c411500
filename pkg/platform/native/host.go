// ABOUTME: Desktop platform host
// ABOUTME: Bundles the oto streaming factory and mixer behind platform.Host
package native

import (
	"context"

	"github.com/Resonate-Protocol/streamplay/pkg/platform"
)

// NewHost returns a host with both capabilities on the default device
func NewHost() *platform.Host {
	return NewHostWithDevice(DefaultDevice())
}

// NewHostWithDevice returns a host with both capabilities on device
func NewHostWithDevice(device *Device) *platform.Host {
	return &platform.Host{
		Streaming: NewStreamer(device),
		NewMixer: func(ctx context.Context) (platform.Mixer, error) {
			return NewMixer(ctx, device)
		},
	}
}
