// ABOUTME: Entry point for the streamplay command
// ABOUTME: Feeds a file or stdin to a Player in chunks and shows progress in a TUI
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/streamplay/internal/ui"
	"github.com/Resonate-Protocol/streamplay/internal/version"
	"github.com/Resonate-Protocol/streamplay/pkg/platform/native"
	"github.com/Resonate-Protocol/streamplay/pkg/streamplay"
	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

var CLI struct {
	Input        string           `arg:"" name:"input" help:"Audio file to play, or - for stdin" default:"-" optional:""`
	MIME         string           `name:"mime" help:"MIME type of the stream" default:"audio/mpeg" env:"STREAMPLAY_MIME"`
	ChunkSize    int              `name:"chunk-size" help:"Bytes per fed chunk" default:"16384" env:"STREAMPLAY_CHUNK_SIZE"`
	ChunkDelay   time.Duration    `name:"chunk-delay" help:"Delay between chunks, simulates network arrival" default:"0s" env:"STREAMPLAY_CHUNK_DELAY"`
	StallTimeout time.Duration    `name:"stall-timeout" help:"Starvation time before the stream is sealed" default:"500ms" env:"STREAMPLAY_STALL_TIMEOUT"`
	LogFile      string           `name:"log-file" help:"Log file path" default:"streamplay.log" env:"STREAMPLAY_LOG_FILE"`
	NoTUI        bool             `name:"no-tui" help:"Disable TUI, use streaming logs instead" env:"STREAMPLAY_NO_TUI"`
	Manual       bool             `name:"manual" help:"Force the manual decode pipeline" env:"STREAMPLAY_MANUAL"`
	Version      kong.VersionFlag `name:"version" help:"Show version information"`
}

func main() {
	if err := loadEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	kong.Parse(&CLI,
		kong.Name(version.Product),
		kong.Description("Play a compressed audio stream as it arrives."),
		kong.Vars{"version": fmt.Sprintf("%s %s", version.Product, version.Version)},
		kong.UsageOnError(),
	)

	if CLI.ChunkSize <= 0 {
		fmt.Fprintf(os.Stderr, "invalid chunk size: %d\n", CLI.ChunkSize)
		os.Exit(1)
	}

	useTUI := !CLI.NoTUI

	// Set up logging
	f, err := os.OpenFile(CLI.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if err := run(useTUI); err != nil {
		log.Printf("Error: %v", err)
		if useTUI {
			fmt.Fprintf(os.Stderr, "%s: %v\n", version.Product, err)
		}
		os.Exit(1)
	}
}

// loadEnv reads .env files into the environment. A missing file is fine;
// the environment and flags still apply.
func loadEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func run(useTUI bool) error {
	input, source, size, err := openInput(CLI.Input)
	if err != nil {
		return err
	}
	defer func() { _ = input.Close() }()

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		defer tuiProg.Quit()
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	host := native.NewHost()
	if CLI.Manual {
		host.Streaming = nil
	}

	var fedAll atomic.Bool
	finished := make(chan struct{}, 1)

	player := streamplay.New()
	opts := streamplay.Options{
		MIMEType:     CLI.MIME,
		Host:         host,
		StallTimeout: CLI.StallTimeout,
		OnStateChange: func(s streamplay.State) {
			log.Printf("State changed: %s", s)
			updateTUI(ui.StatusMsg{State: s.String()})
		},
		OnStreamEnded: func() {
			log.Printf("Stream ended")
			// Earlier ends are underruns; the stream continues with the next feed
			if fedAll.Load() {
				updateTUI(ui.StatusMsg{Ended: true})
				select {
				case finished <- struct{}{}:
				default:
				}
			}
		},
		OnError: func(err error) {
			updateTUI(ui.StatusMsg{Err: err.Error()})
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Printf("Starting %s %s: %s (%s)", version.Product, version.Version, source, CLI.MIME)

	if err := player.Initialize(ctx, opts); err != nil {
		return fmt.Errorf("failed to initialize player: %w", err)
	}
	defer func() {
		if err := player.Destroy(); err != nil {
			log.Printf("Error destroying player: %v", err)
		}
		log.Printf("Player stopped")
	}()

	updateTUI(ui.StatusMsg{
		Source:   source,
		MIMEType: CLI.MIME,
		Total:    size,
		Mode:     player.Mode().String(),
		PlayerID: player.ID(),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := feedLoop(gctx, player, input)
		if err != nil {
			return err
		}
		fedAll.Store(true)
		log.Printf("Input exhausted: %d bytes fed", player.Stats().BytesFed)
		if err := player.Flush(); err != nil {
			return fmt.Errorf("failed to flush player: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return handleControls(gctx, player, controls, finished, useTUI)
	})

	if tuiProg != nil {
		g.Go(func() error {
			statsUpdateLoop(gctx, player, updateTUI)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openInput opens path, treating "-" as stdin. The size is 0 when unknown.
func openInput(path string) (io.ReadCloser, string, int64, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), "stdin", 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to open input: %w", err)
	}

	var size int64
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		size = info.Size()
	}
	return f, path, size, nil
}

// feedLoop feeds the input in chunks, pausing between them when a delay is set
func feedLoop(ctx context.Context, player *streamplay.Player, r io.Reader) error {
	buf := make([]byte, CLI.ChunkSize)

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if ferr := player.Feed(buf[:n]); ferr != nil {
				return fmt.Errorf("failed to feed chunk: %w", ferr)
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if CLI.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(CLI.ChunkDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// handleControls waits for play/pause requests, the end of the stream or a
// quit signal from the TUI or the OS
func handleControls(ctx context.Context, player *streamplay.Player, controls *ui.Controls, finished <-chan struct{}, useTUI bool) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var toggle, quit chan struct{}
	if controls != nil {
		toggle = controls.Toggle
		quit = controls.Quit
	}

	for {
		select {
		case <-toggle:
			if err := togglePlayback(ctx, player); err != nil {
				log.Printf("Play/pause failed: %v", err)
			}
		case <-finished:
			// The TUI stays up so the final counters can be read
			if !useTUI {
				return nil
			}
		case <-quit:
			log.Printf("Received quit signal from TUI")
			return nil
		case <-sigChan:
			log.Printf("Shutdown signal received")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func togglePlayback(ctx context.Context, player *streamplay.Player) error {
	if player.Paused() {
		_, err := player.Play(ctx)
		return err
	}
	_, err := player.Pause(ctx)
	return err
}

// statsUpdateLoop periodically updates TUI with pipeline counters
func statsUpdateLoop(ctx context.Context, player *streamplay.Player, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := player.Stats()
			updateTUI(ui.StatusMsg{Stats: &stats})
		}
	}
}
