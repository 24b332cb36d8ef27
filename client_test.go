package vncbridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClientDisconnectIsIdempotent(t *testing.T) {
	client, _ := newTestClient(t, 64, 64)

	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("first Disconnect: %v", err)
	}
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if client.IsConnected() {
		t.Fatal("IsConnected: got true after Disconnect")
	}
}

func TestAccessorsFailOnceDisconnected(t *testing.T) {
	client, _ := newTestClient(t, 64, 64)
	client.Disconnect(context.Background())

	if _, err := client.Pointer(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Pointer: got %v, want wrapping ErrNotConnected", err)
	}
	if _, err := client.Keyboard(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Keyboard: got %v, want wrapping ErrNotConnected", err)
	}
	if _, err := client.Video(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Video: got %v, want wrapping ErrNotConnected", err)
	}
}

func TestDisconnectStopsAnInProgressRecording(t *testing.T) {
	client, server := newTestClient(t, 2, 2)
	pixels := solidFrame(2, 2, 1, 1, 1, 255)
	go serveFramebufferUpdatesUntilClosed(server, 2, 2, pixels)

	video, err := client.Video()
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if err := video.StartRecording(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if video.IsRecording() {
		t.Fatal("IsRecording: got true after Disconnect")
	}
}
