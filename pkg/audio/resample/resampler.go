// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Streams interleaved int32 samples across chunk boundaries
package resample

import "github.com/Resonate-Protocol/streamplay/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	step       float64 // input frames advanced per output frame
	position   float64 // next read position; -1 addresses prev
	prev       []int32 // last input frame of the previous call
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Process converts interleaved input at inputRate into interleaved output at
// outputRate. Partial trailing frames are ignored.
func (r *Resampler) Process(input []int32) []int32 {
	if r.inputRate == r.outputRate {
		out := make([]int32, len(input))
		copy(out, input)
		return out
	}

	frames := len(input) / r.channels
	if frames == 0 {
		return nil
	}

	// frame(i) addresses prev at -1 and input at 0..frames-1
	frame := func(i, ch int) int32 {
		if i < 0 {
			return r.prev[ch]
		}
		return input[i*r.channels+ch]
	}

	pos := r.position

	out := make([]int32, 0, r.OutputSamplesNeeded(len(input))+r.channels)
	for {
		idx := int(pos)
		if pos < 0 {
			idx = -1
		}
		if idx+1 > frames-1 {
			break
		}
		frac := pos - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := frame(idx, ch)
			s2 := frame(idx+1, ch)
			out = append(out, int32(float64(s1)*(1.0-frac)+float64(s2)*frac))
		}
		pos += r.step
	}

	// Rebase so the last input frame becomes prev (-1) on the next call
	r.position = pos - float64(frames)
	copy(r.prev, input[(frames-1)*r.channels:frames*r.channels])

	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples input samples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.step)
	return outputFrames * r.channels
}

// Segment converts a whole decoded segment to the target sample rate.
// The segment is returned unchanged when the rates already match.
func Segment(seg *audio.Segment, sampleRate int) *audio.Segment {
	if seg == nil || seg.Format.SampleRate == sampleRate || seg.Format.Channels <= 0 {
		return seg
	}

	r := New(seg.Format.SampleRate, sampleRate, seg.Format.Channels)
	out := r.Process(seg.Samples)

	format := seg.Format
	format.SampleRate = sampleRate
	return &audio.Segment{Format: format, Samples: out}
}
