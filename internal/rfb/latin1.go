package rfb

import "fmt"

// EncodeLatin1 converts s to its Latin-1 (ISO-8859-1) byte
// representation, one byte per rune. RFB's text-bearing messages
// (ClientCutText/ServerCutText, and the password fed to VNC-DES) are
// specified in terms of Latin-1, not UTF-8, so this is distinct from
// []byte(s). A rune outside U+0000–U+00FF cannot be represented and is
// reported as a protocol-adjacent input error by the caller.
func EncodeLatin1(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("rfb: rune %q is outside the Latin-1 range", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// DecodeLatin1 expands Latin-1 bytes back into a Go string.
func DecodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
