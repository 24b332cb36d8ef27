package vncbridge

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/imagecodec"
)

func serveOneFramebufferUpdate(t *testing.T, server io.ReadWriter, w, h uint16, pixels []byte) {
	t.Helper()
	req := make([]byte, 10)
	if _, err := io.ReadFull(server, req); err != nil {
		t.Fatalf("read framebuffer update request: %v", err)
	}
	if req[0] != 3 {
		t.Fatalf("got message type %d, want 3 (FramebufferUpdateRequest)", req[0])
	}

	header := make([]byte, 3)
	binary.BigEndian.PutUint16(header[1:3], 1)

	rect := make([]byte, 12)
	binary.BigEndian.PutUint16(rect[4:6], w)
	binary.BigEndian.PutUint16(rect[6:8], h)
	binary.BigEndian.PutUint32(rect[8:12], 0) // EncodingRaw

	msg := []byte{0} // msgFramebufferUpdate
	msg = append(msg, header...)
	msg = append(msg, rect...)
	msg = append(msg, pixels...)
	if _, err := server.Write(msg); err != nil {
		t.Fatalf("write framebuffer update: %v", err)
	}
}

func solidFrame(w, h int, r, g, b, a byte) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		out[i*4+0], out[i*4+1], out[i*4+2], out[i*4+3] = r, g, b, a
	}
	return out
}

func TestScreenshotCapturePNG(t *testing.T) {
	client, server := newTestClient(t, 2, 2)
	pixels := solidFrame(2, 2, 10, 20, 30, 255)

	done := make(chan struct{})
	go func() {
		defer close(done)
		serveOneFramebufferUpdate(t, server, 2, 2, pixels)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	shot, err := client.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	data, err := shot.Capture(ctx, imagecodec.FormatPNG)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	<-done

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("got %dx%d, want 2x2", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestScreenshotCaptureRegion(t *testing.T) {
	client, server := newTestClient(t, 4, 4)
	pixels := solidFrame(4, 4, 1, 2, 3, 255)

	done := make(chan struct{})
	go func() {
		defer close(done)
		serveOneFramebufferUpdate(t, server, 4, 4, pixels)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	shot, err := client.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	data, err := shot.CaptureRegion(ctx, imagecodec.FormatPNG, 1, 1, 2, 2)
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	<-done

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("got %dx%d, want 2x2", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
