package vncbridge

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func TestClipboardSendText(t *testing.T) {
	client, server := newTestClient(t, 1024, 768)

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 8)
		if _, err := io.ReadFull(server, buf); err != nil {
			t.Fatalf("read header: %v", err)
		}
		if buf[0] != 6 {
			t.Fatalf("got message type %d, want 6 (ClientCutText)", buf[0])
		}
		length := binary.BigEndian.Uint32(buf[4:8])
		payload := make([]byte, length)
		if _, err := io.ReadFull(server, payload); err != nil {
			t.Fatalf("read payload: %v", err)
		}
		if string(payload) != "hello" {
			t.Errorf("got %q, want %q", payload, "hello")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clipboard, err := client.Clipboard()
	if err != nil {
		t.Fatalf("Clipboard: %v", err)
	}
	if err := clipboard.SendText(ctx, "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	<-done

	if !clipboard.HasText() {
		t.Fatal("HasText: got false, want true after a successful SendText")
	}
}

func TestClipboardSendEmptyTextIsInputError(t *testing.T) {
	client, _ := newTestClient(t, 1024, 768)
	clipboard, err := client.Clipboard()
	if err != nil {
		t.Fatalf("Clipboard: %v", err)
	}

	err = clipboard.SendText(context.Background(), "")
	if !IsKind(err, KindInput) {
		t.Fatalf("got %v, want KindInput", err)
	}
}

func TestClipboardGetTextReceivesServerCutText(t *testing.T) {
	client, server := newTestClient(t, 1024, 768)

	go func() {
		text := []byte("copied")
		header := make([]byte, 7)
		binary.BigEndian.PutUint32(header[3:7], uint32(len(text)))
		msg := []byte{3} // msgServerCutText
		msg = append(msg, header...)
		msg = append(msg, text...)
		server.Write(msg)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clipboard, err := client.Clipboard()
	if err != nil {
		t.Fatalf("Clipboard: %v", err)
	}
	got, ok, err := clipboard.GetText(ctx, time.Second)
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if !ok {
		t.Fatal("GetText: ok = false, want true")
	}
	if got != "copied" {
		t.Fatalf("got %q, want %q", got, "copied")
	}
	if !clipboard.HasText() {
		t.Fatal("HasText: got false, want true after a successful GetText")
	}
}

func TestClipboardGetTextReturnsAbsentForOtherMessage(t *testing.T) {
	client, server := newTestClient(t, 2, 2)

	go func() {
		pixels := solidFrame(2, 2, 1, 2, 3, 255)
		msg := []byte{0, 0, 0, 1} // FramebufferUpdate, pad, 1 rectangle
		msg = append(msg, 0, 0, 0, 0, 0, 2, 0, 2) // x,y,w,h = 0,0,2,2
		msg = append(msg, 0, 0, 0, 0)              // encoding = Raw
		msg = append(msg, pixels...)
		server.Write(msg)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clipboard, err := client.Clipboard()
	if err != nil {
		t.Fatalf("Clipboard: %v", err)
	}
	got, ok, err := clipboard.GetText(ctx, time.Second)
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if ok {
		t.Fatalf("GetText: ok = true, want false for a non-clipboard message")
	}
	if got != "" {
		t.Fatalf("got %q, want empty string for absent", got)
	}
	if clipboard.HasText() {
		t.Fatal("HasText: got true, want false when no clipboard text was ever cached")
	}
}

func TestClipboardClearResetsCache(t *testing.T) {
	client, server := newTestClient(t, 1024, 768)

	go func() {
		text := []byte("copied")
		header := make([]byte, 7)
		binary.BigEndian.PutUint32(header[3:7], uint32(len(text)))
		msg := []byte{3}
		msg = append(msg, header...)
		msg = append(msg, text...)
		server.Write(msg)

		buf := make([]byte, 8) // drain the Clear-triggered ClientCutText
		io.ReadFull(server, buf)
		io.CopyN(io.Discard, server, int64(binary.BigEndian.Uint32(buf[4:8])))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clipboard, err := client.Clipboard()
	if err != nil {
		t.Fatalf("Clipboard: %v", err)
	}
	if _, _, err := clipboard.GetText(ctx, time.Second); err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if err := clipboard.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if clipboard.HasText() {
		t.Fatal("HasText: got true, want false after Clear")
	}
}
