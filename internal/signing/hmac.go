package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// compareDigests is crypto/subtle.ConstantTimeCompare: its running time
// depends only on the input length, never on where the first differing byte
// is. It is a variable so tests can observe whether it was reached.
var compareDigests = subtle.ConstantTimeCompare

// Sign returns the lowercase hex HMAC-SHA256 of message keyed by secret.
func Sign(message, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether two hex digests are equal.
//
// Both are decoded to bytes first; a decode failure on either side is a
// mismatch. Digests of different lengths are rejected before any byte
// comparison, which reveals only the length the caller already knows from the
// hex string. Equal-length digests are compared in constant time.
func Verify(expectedHex, receivedHex string) bool {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return false
	}
	received, err := hex.DecodeString(receivedHex)
	if err != nil {
		return false
	}
	if len(expected) != len(received) {
		return false
	}
	return compareDigests(expected, received) == 1
}

// VerifyMessage signs message with secret and compares the result against
// receivedHex.
func VerifyMessage(message, secret []byte, receivedHex string) bool {
	return Verify(Sign(message, secret), receivedHex)
}

// IsHexDigest reports whether s decodes as hex. Odd-length or non-hex input is
// malformed rather than merely wrong.
func IsHexDigest(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
