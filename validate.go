package vncbridge

import "time"

// maxCoordinate is the largest value the RFB wire format can carry for
// an x/y coordinate (a 16-bit unsigned integer).
const maxCoordinate = 65535

// validateCoordinate enforces spec.md §3/§8's universal invariant: every
// coordinate reaching a public method must be within [0, 65535]. Go's
// int can represent negative values a uint16 cannot, so callers pass
// int here before narrowing to uint16 for the wire.
func validateCoordinate(op, name string, v int) error {
	if v < 0 || v > maxCoordinate {
		return inputErrorf(op, "%s %d is outside the valid range [0, %d]", name, v, maxCoordinate)
	}
	return nil
}

func validatePoint(op string, x, y int) error {
	if err := validateCoordinate(op, "x", x); err != nil {
		return err
	}
	return validateCoordinate(op, "y", y)
}

func mustUint16(v int) uint16 {
	return uint16(v)
}

func validateNonEmptyText(op, text string) error {
	if text == "" {
		return inputErrorf(op, "text must not be empty")
	}
	return validateLatin1(op, text)
}

// validateLatin1 rejects text containing runes outside U+0000-U+00FF
// before any bytes are written, per spec.md §4.7/§8: local validation
// failures must not touch the wire.
func validateLatin1(op, text string) error {
	for _, r := range text {
		if r > 0xFF {
			return inputErrorf(op, "rune %q is outside the Latin-1 range", r)
		}
	}
	return nil
}

func validateTimeout(op string, timeout time.Duration) error {
	if timeout < 0 {
		return inputErrorf(op, "timeout %s must not be negative", timeout)
	}
	return nil
}
