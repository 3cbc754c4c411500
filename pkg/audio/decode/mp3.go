// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MPEG audio frame ranges to int32 samples with go-mp3
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces interleaved 16-bit stereo
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

// MP3Decoder decodes MP3 frame ranges
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() *MP3Decoder {
	return &MP3Decoder{}
}

// Decode converts a run of whole MP3 frames to a segment. Each call builds
// a fresh go-mp3 decoder, so ranges are independent of each other.
func (d *MP3Decoder) Decode(data []byte) (*audio.Segment, error) {
	if len(data) == 0 {
		return nil, ErrEmptyRange
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := len(pcm) / mp3BytesPerSample
	if numSamples == 0 {
		return nil, ErrEmptyRange
	}

	samples := make([]int32, numSamples)
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}

	return &audio.Segment{
		Format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   mp3Channels,
			BitDepth:   16,
		},
		Samples: samples,
	}, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
