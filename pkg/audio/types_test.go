// ABOUTME: Tests for audio types
// ABOUTME: Tests segment timing helpers and sample conversion functions
package audio

import (
	"testing"
	"time"
)

func TestSegmentDuration(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		samples  int
		expected time.Duration
	}{
		{"one second stereo", Format{SampleRate: 44100, Channels: 2}, 88200, time.Second},
		{"mp3 frame mono", Format{SampleRate: 48000, Channels: 1}, 1152, 24 * time.Millisecond},
		{"empty", Format{SampleRate: 44100, Channels: 2}, 0, 0},
		{"no channels", Format{SampleRate: 44100}, 100, 0},
		{"no rate", Format{Channels: 2}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := Segment{Format: tt.format, Samples: make([]int32, tt.samples)}
			if got := seg.Duration(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDurationToFrames(t *testing.T) {
	if got := DurationToFrames(500*time.Millisecond, 44100); got != 22050 {
		t.Errorf("expected 22050 frames, got %d", got)
	}
	if got := DurationToFrames(-time.Second, 44100); got != 0 {
		t.Errorf("expected 0 frames for negative duration, got %d", got)
	}
	if got := FramesToDuration(DurationToFrames(time.Second, 48000), 48000); got != time.Second {
		t.Errorf("expected round trip to one second, got %v", got)
	}
}

func TestNearestFrameRoundTrip(t *testing.T) {
	// Truncation turns one frame at 44.1kHz into 22675ns, which floors back to frame 0
	if got := DurationToFrames(FramesToDuration(1, 44100), 44100); got != 0 {
		t.Fatalf("expected truncating conversion to lose the frame, got %d", got)
	}

	var at time.Duration
	frames := 0
	for i := 0; i < 500; i++ {
		at += FramesToDuration(1152, 44100)
		frames += 1152
		if got := NearestFrame(at, 44100); got != frames {
			t.Fatalf("segment %d: expected frame %d, got %d", i, frames, got)
		}
	}

	if got := NearestFrame(-time.Second, 44100); got != 0 {
		t.Errorf("expected 0 frames for negative duration, got %d", got)
	}
}

func TestSampleConversions(t *testing.T) {
	tests := []struct {
		name  string
		in16  int16
		out32 int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleFromInt16(tt.in16); got != tt.out32 {
				t.Errorf("SampleFromInt16: expected %d, got %d", tt.out32, got)
			}
			if got := SampleToInt16(tt.out32); got != tt.in16 {
				t.Errorf("SampleToInt16: expected %d, got %d", tt.in16, got)
			}
		})
	}
}

func TestSample24BitPacking(t *testing.T) {
	tests := []struct {
		name   string
		sample int32
		packed [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
		{"max positive", Max24Bit, [3]byte{0xFF, 0xFF, 0x7F}},
		{"max negative", Min24Bit, [3]byte{0x00, 0x00, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleTo24Bit(tt.sample); got != tt.packed {
				t.Errorf("SampleTo24Bit: expected %v, got %v", tt.packed, got)
			}
			if got := SampleFrom24Bit(tt.packed); got != tt.sample {
				t.Errorf("SampleFrom24Bit: expected %d, got %d", tt.sample, got)
			}
		})
	}
}

func TestClampTo24Bit(t *testing.T) {
	if got := ClampTo24Bit(Max24Bit + 10); got != Max24Bit {
		t.Errorf("expected clamp to %d, got %d", Max24Bit, got)
	}
	if got := ClampTo24Bit(Min24Bit - 10); got != Min24Bit {
		t.Errorf("expected clamp to %d, got %d", Min24Bit, got)
	}
	if got := ClampTo24Bit(1234); got != 1234 {
		t.Errorf("expected passthrough, got %d", got)
	}
}
