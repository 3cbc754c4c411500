// ABOUTME: High-level streamplay library API
// ABOUTME: Player that turns incrementally arriving compressed audio into continuous output
// Package streamplay plays compressed audio that arrives in chunks.
//
// This is the main entry point for library users. A Player probes the host
// once during Initialize and settles on one of two pipelines for its whole
// life:
//   - ModeStreamingBuffer: chunks go to a platform streaming buffer one write
//     at a time, and the end of the stream is detected from stalls.
//   - ModeManualDecode: chunks are split on codec frame boundaries, decoded
//     and scheduled back to back on a gapless play-head.
//
// Feed never blocks on decoding or device writes. Lifecycle signals arrive
// through the callbacks in Options.
//
// For lower-level control, see the platform, platform/native and audio packages.
//
// Example:
//
//	player := streamplay.New()
//	err := player.Initialize(ctx, streamplay.Options{
//	    MIMEType:      "audio/mpeg",
//	    OnStreamEnded: func() { log.Printf("stream ended") },
//	})
//	for chunk := range chunks {
//	    if err := player.Feed(chunk); err != nil {
//	        break
//	    }
//	}
//	player.Flush() // no more data; lets the final frame play
//	player.Destroy()
package streamplay
