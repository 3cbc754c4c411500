// ABOUTME: Tests for the Player API
// ABOUTME: Covers capability dispatch, lifecycle, teardown and option defaults with fake hosts
package streamplay

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/platform"
)

// testMixer decodes each byte to one millisecond of mono audio
type testMixer struct {
	mu        sync.Mutex
	state     platform.MixerState
	scheduled int
	calls     int
}

func (m *testMixer) Decode(ctx context.Context, data []byte) (*audio.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return &audio.Segment{
		Format:  audio.Format{SampleRate: 1000, Channels: 1, BitDepth: 16},
		Samples: make([]int32, len(data)),
	}, nil
}

func (m *testMixer) CurrentTime() time.Duration { return 0 }

func (m *testMixer) Schedule(seg *audio.Segment, at time.Duration, onEnded func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.scheduled++
	return nil
}

func (m *testMixer) State() platform.MixerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *testMixer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.state = platform.MixerRunning
	return nil
}

func (m *testMixer) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.state = platform.MixerSuspended
	return nil
}

func (m *testMixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.state = platform.MixerClosed
	return nil
}

func (m *testMixer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// testStreaming completes every write on its own goroutine
type testStreaming struct {
	supported string
	ready     chan struct{}
	openErr   error

	mu       sync.Mutex
	handlers platform.StreamingHandlers
	written  bytes.Buffer
	updating bool
	paused   bool
	calls    int
}

func (s *testStreaming) Supports(mimeType string) bool {
	return mimeType == s.supported
}

func (s *testStreaming) Open(ctx context.Context, mimeType string, h platform.StreamingHandlers) (platform.StreamingBuffer, error) {
	if s.ready != nil {
		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.mu.Lock()
	s.handlers = h
	s.paused = true
	s.mu.Unlock()
	return s, nil
}

func (s *testStreaming) Append(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.updating = true
	s.written.Write(data)
	go func() {
		s.mu.Lock()
		s.updating = false
		h := s.handlers.OnUpdateEnd
		s.mu.Unlock()
		h()
	}()
	return nil
}

func (s *testStreaming) Updating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updating
}

func (s *testStreaming) EndOfStream() error { return s.count() }
func (s *testStreaming) Abort() error       { return s.count() }
func (s *testStreaming) Detach() error      { return s.count() }

func (s *testStreaming) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.paused {
		s.paused = false
		go s.handlers.OnPlaying()
	}
	return nil
}

func (s *testStreaming) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !s.paused {
		s.paused = true
		go s.handlers.OnPause()
	}
	return nil
}

func (s *testStreaming) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *testStreaming) count() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *testStreaming) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func mixerHost(m *testMixer) *platform.Host {
	return &platform.Host{
		NewMixer: func(ctx context.Context) (platform.Mixer, error) { return m, nil },
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew(t *testing.T) {
	p := New()
	if p.ID() == "" {
		t.Error("expected a player id")
	}
	if p.State() != StateUninitialized || p.Mode() != ModeNone {
		t.Errorf("unexpected initial state %s / mode %s", p.State(), p.Mode())
	}
	if err := p.Feed([]byte{1}); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady before initialize, got %v", err)
	}
	if !p.Paused() {
		t.Error("expected paused before initialize")
	}
	if New().ID() == p.ID() {
		t.Error("expected unique ids")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()

	if o.MIMEType != "audio/mpeg" {
		t.Errorf("expected default MIME type, got %q", o.MIMEType)
	}
	if o.StallTimeout != 500*time.Millisecond || o.PauseTimeout != 250*time.Millisecond || o.EndTolerance != 100*time.Millisecond {
		t.Errorf("unexpected timing defaults: %+v", o)
	}
	if o.decodeFailureCeiling() != 8 {
		t.Errorf("expected ceiling 8, got %d", o.decodeFailureCeiling())
	}

	unbounded := Options{MaxDecodeFailures: -1}.withDefaults()
	if unbounded.decodeFailureCeiling() != 0 {
		t.Errorf("negative MaxDecodeFailures should disable the ceiling")
	}
}

func TestInitializeDispatch(t *testing.T) {
	tests := []struct {
		name     string
		host     func() *platform.Host
		mime     string
		wantMode Mode
		wantErr  error
	}{
		{
			name: "streaming supported",
			host: func() *platform.Host {
				return &platform.Host{
					Streaming: &testStreaming{supported: "audio/mpeg"},
					NewMixer:  mixerHost(&testMixer{}).NewMixer,
				}
			},
			wantMode: ModeStreamingBuffer,
		},
		{
			name: "streaming does not support type",
			host: func() *platform.Host {
				return &platform.Host{
					Streaming: &testStreaming{supported: "audio/webm"},
					NewMixer:  mixerHost(&testMixer{}).NewMixer,
				}
			},
			wantMode: ModeManualDecode,
		},
		{
			name:     "mixer only",
			host:     func() *platform.Host { return mixerHost(&testMixer{}) },
			wantMode: ModeManualDecode,
		},
		{
			name:    "no capability",
			host:    func() *platform.Host { return &platform.Host{} },
			wantErr: ErrPlatformUnavailable,
		},
		{
			name:    "manual without sync pattern",
			host:    func() *platform.Host { return mixerHost(&testMixer{}) },
			mime:    "audio/ogg",
			wantErr: ErrPlatformUnavailable,
		},
		{
			name: "mixer fails",
			host: func() *platform.Host {
				return &platform.Host{
					NewMixer: func(ctx context.Context) (platform.Mixer, error) {
						return nil, errors.New("no device")
					},
				}
			},
			wantErr: ErrPlatformUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			defer p.Destroy()

			err := p.Initialize(context.Background(), Options{Host: tt.host(), MIMEType: tt.mime})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if p.State() != StateUninitialized {
					t.Errorf("failed initialize should reset state, got %s", p.State())
				}
				return
			}

			if err != nil {
				t.Fatalf("initialize: %v", err)
			}
			if p.Mode() != tt.wantMode {
				t.Errorf("expected mode %s, got %s", tt.wantMode, p.Mode())
			}
			if p.State() != StateReady {
				t.Errorf("expected ready, got %s", p.State())
			}
		})
	}
}

func TestInitializeTwice(t *testing.T) {
	p := New()
	defer p.Destroy()

	opts := Options{Host: mixerHost(&testMixer{})}
	if err := p.Initialize(context.Background(), opts); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := p.Initialize(context.Background(), opts); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestFeedDuringStreamingHandshake(t *testing.T) {
	streaming := &testStreaming{supported: "audio/mpeg", ready: make(chan struct{})}
	p := New()
	defer p.Destroy()

	done := make(chan error, 1)
	go func() {
		done <- p.Initialize(context.Background(), Options{Host: &platform.Host{Streaming: streaming}})
	}()

	waitFor(t, "initializing", func() bool { return p.State() == StateInitializing })
	if err := p.Feed([]byte{1}); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady during handshake, got %v", err)
	}

	close(streaming.ready)
	if err := <-done; err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := p.Feed([]byte{1}); err != nil {
		t.Errorf("feed after initialize: %v", err)
	}
}

func TestCancelDuringHandshake(t *testing.T) {
	streaming := &testStreaming{supported: "audio/mpeg", ready: make(chan struct{})}
	p := New()
	defer p.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Initialize(ctx, Options{Host: &platform.Host{Streaming: streaming}})
	}()

	waitFor(t, "initializing", func() bool { return p.State() == StateInitializing })
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrPlatformUnavailable) {
		t.Errorf("cancellation reported as a missing platform: %v", err)
	}
	if p.State() != StateUninitialized {
		t.Errorf("expected uninitialized after cancel, got %s", p.State())
	}
}

func TestStreamingOpenErrorKeepsCause(t *testing.T) {
	errDevice := errors.New("device busy")
	p := New()
	defer p.Destroy()

	err := p.Initialize(context.Background(), Options{
		Host: &platform.Host{Streaming: &testStreaming{supported: "audio/mpeg", openErr: errDevice}},
	})
	if !errors.Is(err, ErrPlatformUnavailable) || !errors.Is(err, errDevice) {
		t.Errorf("expected ErrPlatformUnavailable wrapping the device error, got %v", err)
	}
}

func TestDestroyDuringHandshake(t *testing.T) {
	streaming := &testStreaming{supported: "audio/mpeg", ready: make(chan struct{})}
	p := New()

	done := make(chan error, 1)
	go func() {
		done <- p.Initialize(context.Background(), Options{Host: &platform.Host{Streaming: streaming}})
	}()

	waitFor(t, "initializing", func() bool { return p.State() == StateInitializing })
	p.Destroy()

	if err := <-done; !errors.Is(err, ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}
	if p.State() != StateDestroyed {
		t.Errorf("expected destroyed, got %s", p.State())
	}
}

func TestStreamingLifecycle(t *testing.T) {
	streaming := &testStreaming{supported: "audio/mpeg"}
	var started, ended atomic.Int32
	var states []State
	var statesMu sync.Mutex

	p := New()
	err := p.Initialize(context.Background(), Options{
		Host:          &platform.Host{Streaming: streaming},
		StallTimeout:  20 * time.Millisecond,
		OnStarted:     func() { started.Add(1) },
		OnStreamEnded: func() { ended.Add(1) },
		OnStateChange: func(s State) {
			statesMu.Lock()
			states = append(states, s)
			statesMu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer p.Destroy()

	p.Feed([]byte("abc"))
	p.Feed([]byte("def"))

	waitFor(t, "playing", func() bool { return p.State() == StatePlaying })
	if started.Load() != 1 || !p.Playing() {
		t.Errorf("expected playback to start, started=%d", started.Load())
	}

	waitFor(t, "all writes", func() bool { return p.Stats().ChunksWritten == 2 })

	streaming.mu.Lock()
	got := streaming.written.String()
	waiting := streaming.handlers.OnWaiting
	streaming.mu.Unlock()
	if got != "abcdef" {
		t.Errorf("written bytes %q", got)
	}

	waiting()
	waitFor(t, "stream end", func() bool { return ended.Load() == 1 })

	ok, err := p.Pause(context.Background())
	if err != nil || !ok {
		t.Fatalf("pause: %v, %v", ok, err)
	}
	waitFor(t, "paused", func() bool { return p.State() == StatePaused })

	statesMu.Lock()
	defer statesMu.Unlock()
	want := []State{StateInitializing, StateReady, StatePlaying, StatePaused}
	if len(states) != len(want) {
		t.Fatalf("state changes %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state change %d: %s, want %s", i, states[i], want[i])
		}
	}
}

func TestManualLifecycle(t *testing.T) {
	mixer := &testMixer{}
	p := New()
	if err := p.Initialize(context.Background(), Options{Host: mixerHost(mixer)}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer p.Destroy()
	ctx := context.Background()

	p.Feed([]byte{0xFF, 0xFB, 0, 0})
	p.Feed([]byte{0xFF, 0xFB, 0, 0})

	waitFor(t, "playing", func() bool { return p.State() == StatePlaying })

	if ok, _ := p.Play(ctx); ok {
		t.Error("play while playing should report false")
	}
	if ok, _ := p.Pause(ctx); !ok {
		t.Error("pause should report true")
	}
	if p.State() != StatePaused {
		t.Errorf("expected paused, got %s", p.State())
	}
	if ok, _ := p.Pause(ctx); ok {
		t.Error("pause while paused should report false")
	}
	if ok, _ := p.Play(ctx); !ok {
		t.Error("play should report true")
	}
	if p.State() != StatePlaying {
		t.Errorf("expected playing, got %s", p.State())
	}
}

func TestFeedFrom(t *testing.T) {
	streaming := &testStreaming{supported: "audio/mpeg"}
	p := New()
	if err := p.Initialize(context.Background(), Options{Host: &platform.Host{Streaming: streaming}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer p.Destroy()

	data := bytes.Repeat([]byte{7}, 40*1024)
	if err := p.FeedFrom(context.Background(), bytes.NewReader(data)); err != nil {
		t.Fatalf("feed from: %v", err)
	}
	if fed := p.Stats().BytesFed; fed != int64(len(data)) {
		t.Errorf("expected %d bytes fed, got %d", len(data), fed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.FeedFrom(ctx, bytes.NewReader(data)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	tests := []struct {
		name  string
		setup func() (*platform.Host, func() int)
	}{
		{
			name: "streaming",
			setup: func() (*platform.Host, func() int) {
				s := &testStreaming{supported: "audio/mpeg"}
				return &platform.Host{Streaming: s}, s.callCount
			},
		},
		{
			name: "manual",
			setup: func() (*platform.Host, func() int) {
				m := &testMixer{}
				return mixerHost(m), m.callCount
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, calls := tt.setup()
			var ended atomic.Int32

			p := New()
			err := p.Initialize(context.Background(), Options{
				Host:          host,
				OnStreamEnded: func() { ended.Add(1) },
			})
			if err != nil {
				t.Fatalf("initialize: %v", err)
			}

			p.Feed([]byte{0xFF, 0xFB, 1})
			p.Feed([]byte{0xFF, 0xFB, 2})
			time.Sleep(20 * time.Millisecond)

			if err := p.Destroy(); err != nil {
				t.Fatalf("destroy: %v", err)
			}
			before := calls()

			if err := p.Feed([]byte{3}); !errors.Is(err, ErrDestroyed) {
				t.Errorf("expected ErrDestroyed from feed, got %v", err)
			}
			if _, err := p.Play(context.Background()); !errors.Is(err, ErrDestroyed) {
				t.Errorf("expected ErrDestroyed from play, got %v", err)
			}
			if _, err := p.Pause(context.Background()); !errors.Is(err, ErrDestroyed) {
				t.Errorf("expected ErrDestroyed from pause, got %v", err)
			}
			if err := p.Destroy(); err != nil {
				t.Errorf("second destroy: %v", err)
			}
			if err := p.Initialize(context.Background(), Options{Host: host}); !errors.Is(err, ErrDestroyed) {
				t.Errorf("expected ErrDestroyed from initialize, got %v", err)
			}

			time.Sleep(20 * time.Millisecond)
			if after := calls(); after != before {
				t.Errorf("%d platform calls after destroy", after-before)
			}
			if p.State() != StateDestroyed {
				t.Errorf("expected destroyed, got %s", p.State())
			}
		})
	}
}

func TestStateAndModeStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{StateUninitialized.String(), "uninitialized"},
		{StateInitializing.String(), "initializing"},
		{StateReady.String(), "ready"},
		{StatePlaying.String(), "playing"},
		{StatePaused.String(), "paused"},
		{StateDestroyed.String(), "destroyed"},
		{State(99).String(), "unknown"},
		{ModeNone.String(), "none"},
		{ModeStreamingBuffer.String(), "streaming-buffer"},
		{ModeManualDecode.String(), "manual-decode"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestFlushEndsManualStream(t *testing.T) {
	p := New()
	if err := p.Flush(); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady before initialize, got %v", err)
	}

	var ended atomic.Int32
	mixer := &testMixer{}
	err := p.Initialize(context.Background(), Options{
		Host:          mixerHost(mixer),
		OnStreamEnded: func() { ended.Add(1) },
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	p.Feed([]byte{0xFF, 0xFB, 0, 0, 0xFF, 0xFB, 0, 0})
	waitFor(t, "first segment", func() bool { return p.Stats().SegmentsScheduled == 1 })

	if err := p.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	waitFor(t, "stream ended", func() bool { return ended.Load() == 1 })

	if got := p.Stats().SegmentsScheduled; got != 2 {
		t.Errorf("expected the tail scheduled, got %d segments", got)
	}

	p.Destroy()
	if err := p.Flush(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("expected ErrDestroyed after destroy, got %v", err)
	}
}
