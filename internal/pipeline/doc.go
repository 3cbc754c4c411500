// ABOUTME: Playback pipelines behind the streamplay Player
// ABOUTME: Manual decode scheduler and streaming buffer adapter
// Package pipeline implements the two strategies a Player can run.
//
// Manual splits incoming bytes on frame boundaries, decodes each range through
// a platform.Mixer and schedules the segments back to back on a play-head.
// Buffered hands chunks to a platform.StreamingBuffer one write at a time and
// detects the end of the stream from stall signals.
//
// Both satisfy Sink, so the Player routes every call without checking which
// one it holds.
package pipeline
