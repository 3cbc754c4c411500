// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded audio to the output device sample rate
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation. A Resampler keeps the last input frame between
// calls so a stream converted in pieces has no seams at chunk edges.
//
// Example:
//
//	r := resample.New(48000, 44100, 2)
//	out := r.Process(samples)
//
//	// or for a whole decoded segment
//	seg = resample.Segment(seg, 44100)
package resample
