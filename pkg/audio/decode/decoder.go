// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for range decoders and MIME lookup
package decode

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

// ErrEmptyRange is returned when a range decodes to no audio
var ErrEmptyRange = errors.New("range contains no decodable audio")

// Decoder decodes a complete run of compressed frames to PCM
type Decoder interface {
	// Decode converts one self-contained byte range to a segment
	Decode(data []byte) (*audio.Segment, error)

	// Close releases decoder resources
	Close() error
}

// ForMIME returns a decoder for the given MIME type
func ForMIME(mimeType string) (Decoder, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}

	switch mediaType {
	case "audio/mpeg", "audio/mp3", "audio/mpa":
		return NewMP3(), nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", mimeType)
	}
}
