package vncbridge

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func readKeyEvent(t *testing.T, server io.Reader) (down bool, keysym uint32) {
	t.Helper()
	buf := make([]byte, 8)
	if _, err := io.ReadFull(server, buf); err != nil {
		t.Fatalf("read key event: %v", err)
	}
	if buf[0] != 4 {
		t.Fatalf("got message type %d, want 4 (KeyEvent)", buf[0])
	}
	return buf[1] != 0, binary.BigEndian.Uint32(buf[4:8])
}

// TestHotkeyCtrlA implements spec.md §8 scenario 4: Ctrl+A presses
// Control_L down, 'a' down then up, then Control_L up.
func TestHotkeyCtrlA(t *testing.T) {
	client, server := newTestClient(t, 1024, 768)

	done := make(chan struct{})
	go func() {
		defer close(done)

		down, keysym := readKeyEvent(t, server)
		if !down || keysym != keysymControlL {
			t.Errorf("got (%v, %#x), want (down, Control_L=%#x)", down, keysym, keysymControlL)
		}
		down, keysym = readKeyEvent(t, server)
		if !down || keysym != 'a' {
			t.Errorf("got (%v, %#x), want (down, 'a')", down, keysym)
		}
		down, keysym = readKeyEvent(t, server)
		if down || keysym != 'a' {
			t.Errorf("got (%v, %#x), want (up, 'a')", down, keysym)
		}
		down, keysym = readKeyEvent(t, server)
		if down || keysym != keysymControlL {
			t.Errorf("got (%v, %#x), want (up, Control_L=%#x)", down, keysym, keysymControlL)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keyboard, err := client.Keyboard()
	if err != nil {
		t.Fatalf("Keyboard: %v", err)
	}
	if err := keyboard.Hotkey(ctx, KeyName("ctrl"), KeyName("a")); err != nil {
		t.Fatalf("Hotkey: %v", err)
	}
	<-done
}

func TestHotkeyRejectsNonModifierPrefix(t *testing.T) {
	client, _ := newTestClient(t, 1024, 768)
	keyboard, err := client.Keyboard()
	if err != nil {
		t.Fatalf("Keyboard: %v", err)
	}

	err = keyboard.Hotkey(context.Background(), KeyName("a"), KeyName("b"))
	if !IsKind(err, KindInput) {
		t.Fatalf("got %v, want KindInput", err)
	}
}

func TestTypeTextSendsOneKeyEventPairPerRune(t *testing.T) {
	client, server := newTestClient(t, 1024, 768)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, want := range "hi" {
			down, keysym := readKeyEvent(t, server)
			if !down || keysym != uint32(want) {
				t.Errorf("got (%v, %#x), want (down, %#x)", down, keysym, want)
			}
			down, keysym = readKeyEvent(t, server)
			if down || keysym != uint32(want) {
				t.Errorf("got (%v, %#x), want (up, %#x)", down, keysym, want)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keyboard, err := client.Keyboard()
	if err != nil {
		t.Fatalf("Keyboard: %v", err)
	}
	if err := keyboard.TypeText(ctx, "hi"); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	<-done
}

func TestPressKeyUnknownNameIsInputError(t *testing.T) {
	client, _ := newTestClient(t, 1024, 768)
	keyboard, err := client.Keyboard()
	if err != nil {
		t.Fatalf("Keyboard: %v", err)
	}

	err = keyboard.PressKey(context.Background(), KeyName("not-a-key"))
	if !IsKind(err, KindInput) {
		t.Fatalf("got %v, want KindInput", err)
	}
}
