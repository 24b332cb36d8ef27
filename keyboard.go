package vncbridge

import (
	"context"
	"time"
	"unicode"

	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
)

// keyPressPause separates a KeyEvent press from its release so servers
// that coalesce same-tick down/up pairs still see two distinct events.
const keyPressPause = 10 * time.Millisecond

// Key identifies a single key to press: either a symbolic name looked up
// in keysymTable ("ctrl", "f5", "return", ...) or a raw keysym value for
// characters and server extensions the table doesn't name.
type Key struct {
	name   string
	keysym uint32
	isRaw  bool
}

// KeyName builds a Key from a case-insensitive symbolic name.
func KeyName(name string) Key { return Key{name: name} }

// KeySym builds a Key from a raw RFB keysym, bypassing the name table —
// carried from original_source/keyboard.py's press_key, which accepts
// an integer key code alongside its symbolic names (see DESIGN.md).
func KeySym(keysym uint32) Key { return Key{keysym: keysym, isRaw: true} }

func (k Key) resolve(op string) (uint32, error) {
	if k.isRaw {
		return k.keysym, nil
	}
	keysym, ok := lookupKeysym(k.name)
	if !ok {
		return 0, inputErrorf(op, "unrecognized key name %q", k.name)
	}
	return keysym, nil
}

func (k Key) isModifier() bool {
	return !k.isRaw && isModifierName(k.name)
}

// KeyboardController translates text and key-combo requests into
// KeyEvent pairs.
type KeyboardController struct {
	engine *rfb.Engine
}

func newKeyboardController(engine *rfb.Engine) *KeyboardController {
	return &KeyboardController{engine: engine}
}

// TypeText sends a down/up KeyEvent pair for every rune in text, in
// order. Runes outside Latin-1 are rejected, matching the RFB keysym
// space this library targets (Unicode keysyms are a separate extension
// this library does not support).
func (k *KeyboardController) TypeText(ctx context.Context, text string) error {
	const op = "type-text"
	if err := validateNonEmptyText(op, text); err != nil {
		return err
	}

	k.engine.Lock()
	defer k.engine.Unlock()

	for _, r := range text {
		if r > unicode.MaxLatin1 {
			return inputErrorf(op, "rune %q is outside the Latin-1 keysym range this library supports", r)
		}
		if err := k.pressLocked(ctx, op, uint32(r)); err != nil {
			return err
		}
	}
	return nil
}

// PressKey presses and releases a single key.
func (k *KeyboardController) PressKey(ctx context.Context, key Key) error {
	const op = "press-key"
	keysym, err := key.resolve(op)
	if err != nil {
		return err
	}

	k.engine.Lock()
	defer k.engine.Unlock()
	return k.pressLocked(ctx, op, keysym)
}

// KeyDown sends a single key-press KeyEvent without a matching release,
// for callers composing their own chords.
func (k *KeyboardController) KeyDown(ctx context.Context, key Key) error {
	const op = "key-down"
	keysym, err := key.resolve(op)
	if err != nil {
		return err
	}

	k.engine.Lock()
	defer k.engine.Unlock()
	if err := k.engine.SendKeyEvent(ctx, true, keysym); err != nil {
		return wrapEngineErr(op, err)
	}
	return nil
}

// KeyUp sends a single key-release KeyEvent.
func (k *KeyboardController) KeyUp(ctx context.Context, key Key) error {
	const op = "key-up"
	keysym, err := key.resolve(op)
	if err != nil {
		return err
	}

	k.engine.Lock()
	defer k.engine.Unlock()
	if err := k.engine.SendKeyEvent(ctx, false, keysym); err != nil {
		return wrapEngineErr(op, err)
	}
	return nil
}

// Hotkey presses a chord: every key but the last goes down in order,
// the last key presses and releases, then the held modifiers release in
// reverse order. At least two keys are required, and every key before
// the last must be a recognized modifier name.
func (k *KeyboardController) Hotkey(ctx context.Context, keys ...Key) error {
	const op = "hotkey"
	if len(keys) < 2 {
		return inputErrorf(op, "hotkey requires at least two keys, got %d", len(keys))
	}

	modifiers := keys[:len(keys)-1]
	final := keys[len(keys)-1]

	resolved := make([]uint32, len(keys))
	for i, mod := range modifiers {
		if !mod.isModifier() {
			return inputErrorf(op, "key %q is not a recognized modifier", mod.name)
		}
		keysym, err := mod.resolve(op)
		if err != nil {
			return err
		}
		resolved[i] = keysym
	}
	finalKeysym, err := final.resolve(op)
	if err != nil {
		return err
	}
	resolved[len(resolved)-1] = finalKeysym

	k.engine.Lock()
	defer k.engine.Unlock()

	for _, keysym := range resolved[:len(resolved)-1] {
		if err := k.engine.SendKeyEvent(ctx, true, keysym); err != nil {
			return wrapEngineErr(op, err)
		}
	}

	if err := k.engine.SendKeyEvent(ctx, true, finalKeysym); err != nil {
		return wrapEngineErr(op, err)
	}
	sleep(ctx, keyPressPause)
	if err := k.engine.SendKeyEvent(ctx, false, finalKeysym); err != nil {
		return wrapEngineErr(op, err)
	}

	for i := len(resolved) - 2; i >= 0; i-- {
		if err := k.engine.SendKeyEvent(ctx, false, resolved[i]); err != nil {
			return wrapEngineErr(op, err)
		}
	}
	return nil
}

// pressLocked sends a down/up KeyEvent pair. Callers must already hold
// k.engine's lock.
func (k *KeyboardController) pressLocked(ctx context.Context, op string, keysym uint32) error {
	if err := k.engine.SendKeyEvent(ctx, true, keysym); err != nil {
		return wrapEngineErr(op, err)
	}
	sleep(ctx, keyPressPause)
	if err := k.engine.SendKeyEvent(ctx, false, keysym); err != nil {
		return wrapEngineErr(op, err)
	}
	return nil
}
