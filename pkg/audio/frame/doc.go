// ABOUTME: Frame boundary scanning for compressed audio streams
// ABOUTME: Finds safe split points so no codec frame is bisected
// Package frame locates compressed-audio frame boundaries in a growing byte buffer.
//
// Frames are recognised by a two-byte sync pattern: the first byte fully set
// and the high bits selected by a mask set in the second byte. MPEG audio
// uses 0xFF/0xE0 and ADTS AAC uses 0xFF/0xF0.
//
// Example:
//
//	pattern, _ := frame.PatternFor("audio/mpeg")
//	front, rest, ok := frame.Split(pending, pattern)
//	if ok {
//	    decode(front)
//	    pending = rest
//	}
package frame
