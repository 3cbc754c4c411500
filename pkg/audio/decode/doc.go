// ABOUTME: Audio decoder package for compressed byte ranges
// ABOUTME: Provides Decoder interface and the MP3 implementation
// Package decode turns self-contained compressed byte ranges into audio segments.
//
// A range handed to a Decoder must start on a frame header and end on a frame
// boundary (see package frame). Decoders are stateless between calls, so a
// failed range can be retried later once more bytes are available.
//
// Example:
//
//	decoder, err := decode.ForMIME("audio/mpeg")
//	seg, err := decoder.Decode(frames)
package decode
