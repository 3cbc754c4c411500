// ABOUTME: Desktop platform implementation on oto and go-mp3
// ABOUTME: Provides a streaming buffer and a scheduling mixer for the Player
// Package native implements the platform capabilities for desktop hosts.
//
// Both capabilities share one oto output context (oto allows a single
// context per process), opened lazily the first time either is used.
//
// Streamer is a platform.StreamingFactory. Its buffers accept compressed MP3
// bytes, decode them on a background goroutine and feed a ring buffer that
// the oto player drains. A write completes once the decoder consumed it, and
// a dry ring with no bytes left to decode raises the waiting signal.
//
// Mixer is a platform.Mixer. It decodes ranges with go-mp3, converts them to
// the device format and mixes scheduled segments on a sample-accurate
// timeline.
//
// Example:
//
//	host := native.NewHost()
//	player := streamplay.New()
//	err := player.Initialize(ctx, streamplay.Options{Host: host})
package native
