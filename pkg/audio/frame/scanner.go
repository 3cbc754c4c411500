// ABOUTME: Frame-boundary scanner
// ABOUTME: Backward sync-pattern search and safe buffer splitting
package frame

import (
	"mime"
	"strings"
)

// SyncPattern describes the two-byte header that starts every frame
type SyncPattern struct {
	First      byte
	SecondMask byte
}

var (
	// MPEG audio (layers I-III): 11 sync bits
	MPEG = SyncPattern{First: 0xFF, SecondMask: 0xE0}

	// ADTS AAC: 12 sync bits
	ADTS = SyncPattern{First: 0xFF, SecondMask: 0xF0}
)

var patterns = map[string]SyncPattern{
	"audio/mpeg": MPEG,
	"audio/mp3":  MPEG,
	"audio/mpa":  MPEG,
	"audio/aac":  ADTS,
	"audio/aacp": ADTS,
}

// PatternFor returns the sync pattern for a MIME type. Parameters such as
// codecs="mp3" are ignored.
func PatternFor(mimeType string) (SyncPattern, bool) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	p, ok := patterns[mediaType]
	return p, ok
}

// Matches reports whether buf[i], buf[i+1] form a frame header
func (p SyncPattern) Matches(buf []byte, i int) bool {
	if i < 0 || i+1 >= len(buf) {
		return false
	}
	return buf[i] == p.First && buf[i+1]&p.SecondMask == p.SecondMask
}

// LastBoundary returns the highest index where a frame header starts.
// The scan runs backward from len(buf)-2 so the latest cut point wins.
// ok is false when no header exists; index 0 is a valid result.
func LastBoundary(buf []byte, p SyncPattern) (index int, ok bool) {
	for i := len(buf) - 2; i >= 0; i-- {
		if p.Matches(buf, i) {
			return i, true
		}
	}
	return -1, false
}

// Split cuts buf at its last frame boundary. It only succeeds when the
// boundary is past index 0, since a cut at 0 would produce an empty front.
// front and rest are fresh copies and never share memory with buf.
func Split(buf []byte, p SyncPattern) (front, rest []byte, ok bool) {
	i, found := LastBoundary(buf, p)
	if !found || i == 0 {
		return nil, buf, false
	}

	front = make([]byte, i)
	copy(front, buf[:i])
	rest = make([]byte, len(buf)-i)
	copy(rest, buf[i:])
	return front, rest, true
}
