// ABOUTME: PCM conversion helpers for the oto device
// ABOUTME: Channel remixing and 16-bit little-endian packing
package native

import (
	"encoding/binary"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/resample"
)

// toDevice converts a decoded segment to the device rate and channel count
func toDevice(seg *audio.Segment, sampleRate, channels int) *audio.Segment {
	seg = resample.Segment(seg, sampleRate)

	if seg.Format.Channels == channels {
		return seg
	}

	format := seg.Format
	format.Channels = channels
	return &audio.Segment{
		Format:  format,
		Samples: remix(seg.Samples, seg.Format.Channels, channels),
	}
}

// remix converts interleaved samples between channel counts. Down-mixing to
// mono averages all channels; otherwise missing channels repeat the last
// source channel and extra ones are dropped.
func remix(samples []int32, from, to int) []int32 {
	if from == to || from <= 0 || to <= 0 {
		return samples
	}

	frames := len(samples) / from
	out := make([]int32, frames*to)

	for f := 0; f < frames; f++ {
		in := samples[f*from : (f+1)*from]

		if to == 1 {
			var sum int64
			for _, s := range in {
				sum += int64(s)
			}
			out[f] = int32(sum / int64(from))
			continue
		}

		for c := 0; c < to; c++ {
			src := c
			if src >= from {
				src = from - 1
			}
			out[f*to+c] = in[src]
		}
	}

	return out
}

// encodeInt16LE packs samples into out as signed 16-bit little-endian.
// out must hold at least 2*len(samples) bytes.
func encodeInt16LE(samples []int32, out []byte) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(audio.SampleToInt16(s)))
	}
}

// decodeInt16LE unpacks signed 16-bit little-endian PCM
func decodeInt16LE(pcm []byte) []int32 {
	samples := make([]int32, len(pcm)/bytesPerSample)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
	}
	return samples
}
