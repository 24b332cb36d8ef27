package rfb

import "crypto/des"

// deriveDESKey turns a caller password into the 8-byte DES-ECB key RFB's
// VNC authentication scheme uses. Per the RFB specification (and unlike
// almost every other DES usage in the wild) the bits within each key
// byte are reversed before use — a historical quirk, not a bug, and
// required for interoperability with real VNC servers.
func deriveDESKey(password string) [8]byte {
	var key [8]byte
	raw, err := EncodeLatin1(password)
	if err != nil {
		// Passwords outside Latin-1 are vanishingly rare for VNC; fall
		// back to a best-effort truncating byte view rather than fail
		// a step that spec.md does not classify as an input error.
		raw = []byte(password)
	}
	copy(key[:], raw) // remaining bytes stay zero-padded

	for i := range key {
		key[i] = reverseBits(key[i])
	}
	return key
}

func reverseBits(b byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out <<= 1
		out |= b & 1
		b >>= 1
	}
	return out
}

// vncChallengeResponse encrypts the 16-byte server challenge with
// DES-ECB, one 8-byte half at a time, using a key derived from password.
func vncChallengeResponse(challenge [16]byte, password string) ([16]byte, error) {
	var response [16]byte

	key := deriveDESKey(password)
	block, err := des.NewCipher(key[:])
	if err != nil {
		return response, err
	}

	block.Encrypt(response[:8], challenge[:8])
	block.Encrypt(response[8:], challenge[8:])
	return response, nil
}
