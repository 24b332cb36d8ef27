package vncbridge

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/imagecodec"
)

// serveFramebufferUpdatesUntilClosed answers every FramebufferUpdateRequest
// with a fresh full-frame update until the pipe closes, at which point it
// returns without failing the test (a closed pipe is the expected way this
// loop ends).
func serveFramebufferUpdatesUntilClosed(server io.ReadWriter, w, h uint16, pixels []byte) {
	for {
		req := make([]byte, 10)
		if _, err := io.ReadFull(server, req); err != nil {
			return
		}

		header := make([]byte, 3)
		binary.BigEndian.PutUint16(header[1:3], 1)

		rect := make([]byte, 12)
		binary.BigEndian.PutUint16(rect[4:6], w)
		binary.BigEndian.PutUint16(rect[6:8], h)
		binary.BigEndian.PutUint32(rect[8:12], 0)

		msg := []byte{0}
		msg = append(msg, header...)
		msg = append(msg, rect...)
		msg = append(msg, pixels...)
		if _, err := server.Write(msg); err != nil {
			return
		}
	}
}

func TestVideoRecordCapturesMultipleFrames(t *testing.T) {
	client, server := newTestClient(t, 2, 2)
	pixels := solidFrame(2, 2, 5, 6, 7, 255)

	go serveFramebufferUpdatesUntilClosed(server, 2, 2, pixels)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	video, err := client.Video()
	if err != nil {
		t.Fatalf("Video: %v", err)
	}

	frames, err := video.Record(ctx, 120*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(frames) < 2 {
		t.Fatalf("got %d frames, want at least 2", len(frames))
	}
	if video.IsRecording() {
		t.Fatal("IsRecording: got true after Record returned")
	}
	if size := video.GetAverageFrameSize(); size != 16 {
		t.Fatalf("GetAverageFrameSize: got %d, want 16", size)
	}
	if rate := video.GetFrameRate(); rate <= 0 {
		t.Fatalf("GetFrameRate: got %v, want > 0", rate)
	}
}

func TestVideoStartRecordingTwiceIsInputError(t *testing.T) {
	client, server := newTestClient(t, 2, 2)
	pixels := solidFrame(2, 2, 0, 0, 0, 255)
	go serveFramebufferUpdatesUntilClosed(server, 2, 2, pixels)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	video, err := client.Video()
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if err := video.StartRecording(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	defer video.StopRecording(ctx)

	err = video.StartRecording(ctx, 20*time.Millisecond)
	if !IsKind(err, KindInput) {
		t.Fatalf("got %v, want KindInput", err)
	}
}

func TestVideoSaveFrames(t *testing.T) {
	client, server := newTestClient(t, 2, 2)
	pixels := solidFrame(2, 2, 8, 8, 8, 255)
	go serveFramebufferUpdatesUntilClosed(server, 2, 2, pixels)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	video, err := client.Video()
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	frames, err := video.Record(ctx, 60*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(frames) == 0 {
		t.Fatal("got 0 frames")
	}

	dir := t.TempDir()
	if err := video.SaveFrames(frames, dir, imagecodec.FormatPNG); err != nil {
		t.Fatalf("SaveFrames: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "frame-0000.png")); err != nil {
		t.Fatalf("expected frame-0000.png: %v", err)
	}
}
