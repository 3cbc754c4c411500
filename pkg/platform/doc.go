// ABOUTME: Platform collaborator contracts for streamed playback
// ABOUTME: Defines the streaming buffer and the decode-and-mix service
// Package platform describes the host capabilities a Player drives.
//
// Two incompatible capabilities exist:
//   - StreamingFactory / StreamingBuffer: the host accepts opaque compressed
//     byte ranges, demuxes and buffers them itself, and reports write-complete
//     and stalled signals.
//   - Mixer: the host decodes self-contained byte ranges into segments and
//     plays them at scheduled times against its own clock.
//
// A Host bundles whichever of the two are available. Package native provides
// a desktop implementation; tests substitute fakes.
//
// Example:
//
//	host := &platform.Host{
//	    Streaming: myStreamer,
//	    NewMixer:  func(ctx context.Context) (platform.Mixer, error) { return myMixer, nil },
//	}
package platform
