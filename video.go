package vncbridge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/imagecodec"
	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
	"github.com/Ganzzi/vnc-agent-bridge/internal/workerpool"
)

var videoLog = logging.L("video")

// VideoFrame is one captured framebuffer sample.
type VideoFrame struct {
	Timestamp     time.Time
	RGBA          []byte
	Width, Height int
}

// defaultFrameInterval is used by Record/RecordUntil when the caller
// passes interval <= 0.
const defaultFrameInterval = 200 * time.Millisecond

// VideoRecorder periodically captures the framebuffer on a background
// goroutine. Its start/stop lifecycle — an atomic running flag, a stop
// channel the loop selects on, and a done channel the stopping call
// blocks on — is carried from internal/workerpool.Pool's Drain, generalized
// from a fixed worker count to the single capture loop this recorder
// needs (see DESIGN.md).
type VideoRecorder struct {
	screenshot *ScreenshotService

	mu        sync.Mutex
	frames    []VideoFrame
	recording atomic.Bool

	stopChan chan struct{}
	done     chan struct{}
}

func newVideoRecorder(screenshot *ScreenshotService) *VideoRecorder {
	return &VideoRecorder{screenshot: screenshot}
}

// StartRecording begins capturing a frame every interval (clamped to
// defaultFrameInterval when interval <= 0) until StopRecording is
// called. It returns an error if a recording is already in progress.
func (v *VideoRecorder) StartRecording(ctx context.Context, interval time.Duration) error {
	const op = "video-start-recording"
	if !v.recording.CompareAndSwap(false, true) {
		return inputErrorf(op, "a recording is already in progress")
	}
	if interval <= 0 {
		interval = defaultFrameInterval
	}

	v.mu.Lock()
	v.frames = nil
	v.mu.Unlock()

	v.stopChan = make(chan struct{})
	v.done = make(chan struct{})

	go v.run(ctx, interval)
	return nil
}

// StopRecording signals the capture loop to exit, waits for it, and
// returns the frames captured since StartRecording.
func (v *VideoRecorder) StopRecording(ctx context.Context) ([]VideoFrame, error) {
	const op = "video-stop-recording"
	if !v.recording.Load() {
		return nil, inputErrorf(op, "no recording is in progress")
	}

	close(v.stopChan)
	select {
	case <-v.done:
	case <-ctx.Done():
		return nil, wrapEngineErr(op, ctx.Err())
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	frames := make([]VideoFrame, len(v.frames))
	copy(frames, v.frames)
	return frames, nil
}

// stopIfRunning is Disconnect's best-effort cleanup: it stops an
// in-progress recording without surfacing an error, since the caller is
// already tearing the connection down.
func (v *VideoRecorder) stopIfRunning(ctx context.Context) {
	if !v.recording.Load() {
		return
	}
	_, _ = v.StopRecording(ctx)
}

// IsRecording reports whether a capture loop is currently running.
func (v *VideoRecorder) IsRecording() bool {
	return v.recording.Load()
}

// FrameCount returns the number of frames captured so far in the
// current (or most recently stopped) recording.
func (v *VideoRecorder) FrameCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.frames)
}

// Record starts a recording, lets it run for duration, stops it, and
// returns the captured frames — a blocking convenience wrapper around
// StartRecording/StopRecording.
func (v *VideoRecorder) Record(ctx context.Context, duration, interval time.Duration) ([]VideoFrame, error) {
	if err := v.StartRecording(ctx, interval); err != nil {
		return nil, err
	}
	sleep(ctx, duration)
	return v.StopRecording(ctx)
}

// RecordUntil records until the wall-clock deadline until is reached or
// ctx is cancelled, whichever comes first.
func (v *VideoRecorder) RecordUntil(ctx context.Context, until time.Time, interval time.Duration) ([]VideoFrame, error) {
	return v.Record(ctx, time.Until(until), interval)
}

// GetFrameRate returns captured frames per second of wall-clock
// duration between the first and last frame. Fewer than two frames
// yields 0.
func (v *VideoRecorder) GetFrameRate() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.frames) < 2 {
		return 0
	}
	span := v.frames[len(v.frames)-1].Timestamp.Sub(v.frames[0].Timestamp).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(v.frames)-1) / span
}

// GetDuration returns the wall-clock span between the first and last
// captured frame.
func (v *VideoRecorder) GetDuration() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.frames) < 2 {
		return 0
	}
	return v.frames[len(v.frames)-1].Timestamp.Sub(v.frames[0].Timestamp)
}

// GetAverageFrameSize returns the mean byte length of each frame's raw
// RGBA payload, a small addition alongside GetFrameRate/GetDuration to
// help callers estimate encoded output size before saving (see
// DESIGN.md).
func (v *VideoRecorder) GetAverageFrameSize() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.frames) == 0 {
		return 0
	}
	total := 0
	for _, f := range v.frames {
		total += len(f.RGBA)
	}
	return total / len(v.frames)
}

// saveFramesConcurrency bounds how many frames SaveFrames encodes and
// writes at once. Encoding is CPU-bound and I/O is independent per
// frame, so a small bounded pool shortens wall-clock time for a long
// recording without spawning one goroutine per frame.
const saveFramesConcurrency = 4

// SaveFrames encodes every frame in format and writes it to dir as
// frame-0000.<ext>, frame-0001.<ext>, and so on. Frames are encoded
// concurrently through a bounded internal/workerpool.Pool (see
// DESIGN.md) but errors from any frame are collected and returned
// together so a failure on one frame does not silently drop the rest.
func (v *VideoRecorder) SaveFrames(frames []VideoFrame, dir string, format imagecodec.Format) error {
	const op = "video-save-frames"
	if len(frames) == 0 {
		return nil
	}

	pool := workerpool.New(saveFramesConcurrency, len(frames))
	errs := make([]error, len(frames))

	for i, frame := range frames {
		i, frame := i, frame
		pool.Submit(func() {
			data, err := encodeRGBA(op, format, frame.RGBA, frame.Width, frame.Height)
			if err != nil {
				errs[i] = err
				return
			}
			path := filepath.Join(dir, fmt.Sprintf("frame-%04d.%s", i, format))
			errs[i] = writeFile(op, path, data)
		})
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), saveFramesDrainTimeout)
	defer cancel()
	pool.Drain(drainCtx)

	return errors.Join(errs...)
}

// saveFramesDrainTimeout bounds how long SaveFrames waits for every
// submitted encode+write task to finish before giving up.
const saveFramesDrainTimeout = 30 * time.Second

func (v *VideoRecorder) run(ctx context.Context, interval time.Duration) {
	defer close(v.done)
	defer v.recording.Store(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-v.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.captureOne(ctx); err != nil {
				videoLog.Warn("frame capture failed", "error", err)
			}
		}
	}
}

func (v *VideoRecorder) captureOne(ctx context.Context) error {
	const op = "video-capture-frame"

	rgba, w, h, err := v.screenshot.refresh(ctx, op)
	if err != nil {
		return err
	}

	frame := VideoFrame{
		Timestamp: time.Now(),
		RGBA:      rgba,
		Width:     w,
		Height:    h,
	}

	v.mu.Lock()
	v.frames = append(v.frames, frame)
	v.mu.Unlock()
	return nil
}
