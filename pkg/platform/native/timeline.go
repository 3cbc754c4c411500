// ABOUTME: Sample-accurate mixing timeline
// ABOUTME: io.Reader that renders scheduled segments at their frame offsets
package native

import (
	"sync"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
)

type timelineEntry struct {
	start   int64 // first frame
	end     int64 // one past the last frame
	samples []int32
}

// timeline mixes scheduled segments into a continuous PCM stream. It never
// blocks: frames with nothing scheduled render as silence.
type timeline struct {
	channels int

	mu       sync.Mutex
	position int64 // frames rendered so far
	entries  []*timelineEntry
	mix      []int64
}

func newTimeline(channels int) *timeline {
	return &timeline{channels: channels}
}

// schedule places interleaved samples at frame at, or at the render position
// if at already passed. It returns the frame the segment ends on.
func (t *timeline) schedule(samples []int32, at int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at < t.position {
		at = t.position
	}

	frames := int64(len(samples) / t.channels)
	e := &timelineEntry{start: at, end: at + frames, samples: samples}
	if frames > 0 {
		t.entries = append(t.entries, e)
	}
	return e.end
}

// Read renders the next frames as signed 16-bit little-endian PCM
func (t *timeline) Read(p []byte) (int, error) {
	frameBytes := t.channels * bytesPerSample
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	t.mu.Lock()

	n := frames * t.channels
	if cap(t.mix) < n {
		t.mix = make([]int64, n)
	}
	mix := t.mix[:n]
	for i := range mix {
		mix[i] = 0
	}

	from := t.position
	to := from + int64(frames)

	keep := t.entries[:0]
	for _, e := range t.entries {
		lo := max(e.start, from)
		hi := min(e.end, to)
		for f := lo; f < hi; f++ {
			src := e.samples[(f-e.start)*int64(t.channels):]
			dst := mix[(f-from)*int64(t.channels):]
			for c := 0; c < t.channels; c++ {
				dst[c] += int64(src[c])
			}
		}
		if e.end > to {
			keep = append(keep, e)
		}
	}
	for i := len(keep); i < len(t.entries); i++ {
		t.entries[i] = nil
	}
	t.entries = keep
	t.position = to

	out := make([]int32, n)
	for i, v := range mix {
		out[i] = audio.ClampTo24Bit(v)
	}
	t.mu.Unlock()

	encodeInt16LE(out, p)
	return frames * frameBytes, nil
}

// rendered returns how many frames have been rendered
func (t *timeline) rendered() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// pending returns how many segments still have frames to render
func (t *timeline) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// clear drops every scheduled segment
func (t *timeline) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}
