// ABOUTME: oto-backed streaming buffer
// ABOUTME: Decodes appended MP3 bytes in the background and plays them through a ring buffer
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/streamplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/resample"
	"github.com/Resonate-Protocol/streamplay/pkg/platform"
	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

const (
	// ringSeconds is how much decoded audio a streaming buffer holds
	ringSeconds = 1

	// decodeChunkBytes is four stereo MP3 frames of 16-bit PCM
	decodeChunkBytes = 4 * 1152 * 2 * bytesPerSample

	mp3Channels = 2
)

var (
	// ErrDetached is returned when a streaming buffer is used after Detach
	ErrDetached = errors.New("streaming buffer detached")

	// ErrAppendInProgress is returned when Append is called while updating
	ErrAppendInProgress = errors.New("append already in progress")
)

// Streamer implements platform.StreamingFactory on the oto device
type Streamer struct {
	device *Device
}

// NewStreamer creates a streaming buffer factory for the device
func NewStreamer(device *Device) *Streamer {
	return &Streamer{device: device}
}

// Supports reports whether a decoder exists for the MIME type
func (s *Streamer) Supports(mimeType string) bool {
	dec, err := decode.ForMIME(mimeType)
	if err != nil {
		return false
	}
	dec.Close()
	return true
}

// Open binds a new streaming buffer to the device. It returns once the
// device is ready to play.
func (s *Streamer) Open(ctx context.Context, mimeType string, h platform.StreamingHandlers) (platform.StreamingBuffer, error) {
	if !s.Supports(mimeType) {
		return nil, fmt.Errorf("unsupported MIME type: %s", mimeType)
	}

	sb := &streamBuffer{
		device:   s.device,
		handlers: h,
		ring:     NewRingBuffer(s.device.SampleRate() * s.device.Channels() * ringSeconds),
		done:     make(chan struct{}),
		paused:   true,
	}
	sb.queue = newByteQueue(sb.writeConsumed)

	player, err := s.device.newPlayer(ctx, sb)
	if err != nil {
		return nil, err
	}
	sb.player = player

	sb.wg.Add(1)
	go sb.decodeLoop()

	log.Printf("Streaming buffer opened for %s", mimeType)
	return sb, nil
}

// streamBuffer is the platform.StreamingBuffer returned by Streamer.Open
type streamBuffer struct {
	device   *Device
	handlers platform.StreamingHandlers
	queue    *byteQueue
	ring     *RingBuffer
	player   *oto.Player
	scratch  []int32
	done     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	updating bool
	paused   bool
	primed   bool // samples reached the device since the last reset
	starved  bool
	detached bool
}

// Append hands data to the decoder. OnUpdateEnd fires once it has been consumed.
func (s *streamBuffer) Append(data []byte) error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return ErrDetached
	}
	if s.updating {
		s.mu.Unlock()
		return ErrAppendInProgress
	}
	s.updating = true
	s.mu.Unlock()

	if len(data) == 0 {
		go s.writeConsumed()
		return nil
	}

	if _, err := s.queue.Write(data); err != nil {
		return fmt.Errorf("failed to queue data: %w", err)
	}
	return nil
}

// writeConsumed completes the write in progress
func (s *streamBuffer) writeConsumed() {
	s.mu.Lock()
	if !s.updating || s.detached {
		s.mu.Unlock()
		return
	}
	s.updating = false
	h := s.handlers.OnUpdateEnd
	s.mu.Unlock()

	if h != nil {
		h()
	}
}

// Updating reports whether the last Append is still being consumed
func (s *streamBuffer) Updating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updating
}

// EndOfStream lets the decoder finish once the queued bytes are gone
func (s *streamBuffer) EndOfStream() error {
	if s.isDetached() {
		return ErrDetached
	}
	s.queue.Seal()
	return nil
}

// Abort drops queued bytes and decoded audio not yet played
func (s *streamBuffer) Abort() error {
	if s.isDetached() {
		return ErrDetached
	}

	s.queue.Reset()
	s.ring.Reset()

	s.mu.Lock()
	s.updating = false
	s.primed = false
	s.mu.Unlock()
	return nil
}

// Play starts the oto player
func (s *streamBuffer) Play() error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return ErrDetached
	}
	if !s.paused {
		s.mu.Unlock()
		return nil
	}
	s.paused = false
	s.starved = false
	h := s.handlers.OnPlaying
	s.mu.Unlock()

	s.player.Play()
	if h != nil {
		go h()
	}
	return nil
}

// Pause pauses the oto player
func (s *streamBuffer) Pause() error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return ErrDetached
	}
	if s.paused {
		s.mu.Unlock()
		return nil
	}
	s.paused = true
	h := s.handlers.OnPause
	s.mu.Unlock()

	s.player.Pause()
	if h != nil {
		go h()
	}
	return nil
}

// Paused reports whether playback is paused
func (s *streamBuffer) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Detach stops the decoder and releases the oto player
func (s *streamBuffer) Detach() error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return nil
	}
	s.detached = true
	s.mu.Unlock()

	close(s.done)
	s.queue.Close()
	s.player.Pause()
	s.player.Close()
	s.wg.Wait()

	log.Printf("Streaming buffer detached")
	return nil
}

func (s *streamBuffer) isDetached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// Read feeds the oto player from the ring buffer, padding underruns with silence
func (s *streamBuffer) Read(p []byte) (int, error) {
	frameBytes := s.device.frameBytes()
	n := (len(p) / frameBytes) * s.device.Channels()
	if n == 0 {
		return 0, nil
	}

	if cap(s.scratch) < n {
		s.scratch = make([]int32, n)
	}
	samples := s.scratch[:n]

	got := s.ring.Read(samples)
	encodeInt16LE(samples, p)

	if got < n {
		s.underrun(got > 0)
	} else {
		s.mu.Lock()
		s.primed = true
		s.starved = false
		s.mu.Unlock()
	}

	return n * bytesPerSample, nil
}

// underrun raises OnWaiting once per dry spell while playing
func (s *streamBuffer) underrun(partial bool) {
	s.mu.Lock()
	if partial {
		s.primed = true
	}
	if s.paused || s.detached || !s.primed || s.starved || s.updating || s.queue.Len() > 0 {
		s.mu.Unlock()
		return
	}
	s.starved = true
	h := s.handlers.OnWaiting
	s.mu.Unlock()

	// Read runs on oto's goroutine, so handlers must not run here
	if h != nil {
		go h()
	}
}

// decodeLoop decodes queued bytes into the ring until detached. Each sealed
// run of bytes is a separate MP3 stream.
func (s *streamBuffer) decodeLoop() {
	defer s.wg.Done()

	buf := make([]byte, decodeChunkBytes)
	for {
		dec, err := mp3.NewDecoder(s.queue)
		if err == nil {
			s.decodeStream(dec, buf)
		} else if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("Warning: failed to start stream decoder: %v", err)
		}

		if !s.queue.waitReopen() {
			return
		}
	}
}

func (s *streamBuffer) decodeStream(dec *mp3.Decoder, buf []byte) {
	rs := resample.New(dec.SampleRate(), s.device.SampleRate(), mp3Channels)
	log.Printf("Stream decoder started: %dHz source, %dHz device", dec.SampleRate(), s.device.SampleRate())

	for {
		n, err := io.ReadFull(dec, buf)
		if n > 0 {
			frameBytes := mp3Channels * bytesPerSample
			pcm := buf[:n-n%frameBytes]
			samples := remix(rs.Process(decodeInt16LE(pcm)), mp3Channels, s.device.Channels())
			if !s.ring.WriteAll(samples, s.done) {
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				log.Printf("Warning: stream decode error: %v", err)
			}
			return
		}
	}
}
