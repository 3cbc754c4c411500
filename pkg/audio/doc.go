// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Segment types and sample conversion functions
// Package audio provides fundamental audio types shared by the streamplay packages.
//
// This package defines:
//   - Format: Describes a PCM stream (sample rate, channels, bit depth)
//   - Segment: A decoded, fixed-duration run of interleaved samples ready for scheduling
//
// It also provides utilities for converting between sample representations:
//   - 16-bit ↔ 24-bit conversions
//   - int32 ↔ packed byte conversions
//
// Example:
//
//	seg := audio.Segment{
//	    Format:  audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16},
//	    Samples: samples,
//	}
//	log.Printf("segment lasts %v", seg.Duration())
package audio
