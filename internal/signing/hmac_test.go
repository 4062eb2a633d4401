package signing

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		message string
		secret  string
		want    string
	}{
		{
			name:    "rfc-style fox vector",
			message: "The quick brown fox jumps over the lazy dog",
			secret:  "key",
			want:    "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		},
		{
			name:    "redirect canonical string",
			message: "checkout_id=ch_1&product_id=prod_1",
			secret:  "creem_test_key",
			want:    "0710e45255ca9647ffdd0cd139d303139d8d1bdb0db691db887e4291479cd1c3",
		},
		{
			name:    "empty message",
			message: "",
			secret:  "creem_test_key",
			want:    "970b64b4f66ae8fbb2eef5842f721d135a4e2575c62abf54081228685c60e946",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sign([]byte(tt.message), []byte(tt.secret)))
		})
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		msg := make([]byte, rng.IntN(512))
		secret := make([]byte, 1+rng.IntN(64))
		fillRandom(rng, msg)
		fillRandom(rng, secret)

		sig := Sign(msg, secret)
		require.True(t, VerifyMessage(msg, secret, sig), "round trip failed at iteration %d", i)
	}
}

func TestVerify_TamperSensitivity(t *testing.T) {
	msg := []byte(`{"id":"evt_1","eventType":"subscription.paid"}`)
	secret := []byte("whsec_test")
	sig := Sign(msg, secret)

	for i := range msg {
		tampered := append([]byte(nil), msg...)
		tampered[i] ^= 0x01
		assert.False(t, VerifyMessage(tampered, secret, sig), "flipping message byte %d should break verification", i)
	}

	for i := range secret {
		tampered := append([]byte(nil), secret...)
		tampered[i] ^= 0x01
		assert.False(t, VerifyMessage(msg, tampered, sig), "flipping secret byte %d should break verification", i)
	}
}

func TestVerify_CaseInsensitiveHex(t *testing.T) {
	sig := Sign([]byte("payload"), []byte("secret"))

	assert.True(t, Verify(sig, strings.ToUpper(sig)))
}

func TestVerify_DecodeFailures(t *testing.T) {
	sig := Sign([]byte("payload"), []byte("secret"))

	assert.False(t, Verify(sig, "not-hex"))
	assert.False(t, Verify(sig, sig[:len(sig)-1]), "odd-length hex must fail")
	assert.False(t, Verify("zz", sig))
	assert.False(t, Verify(sig, ""))
}

func TestVerify_LengthMismatchSkipsComparison(t *testing.T) {
	calls := 0
	original := compareDigests
	compareDigests = func(x, y []byte) int {
		calls++
		return original(x, y)
	}
	t.Cleanup(func() { compareDigests = original })

	sig := Sign([]byte("payload"), []byte("secret"))

	assert.False(t, Verify(sig, sig[:len(sig)-2]))
	assert.False(t, Verify(sig, sig+"00"))
	assert.Equal(t, 0, calls, "constant-time comparison must not run for digests of different length")

	assert.True(t, Verify(sig, sig))
	assert.Equal(t, 1, calls, "equal-length digests go through the constant-time comparison")
}

func TestIsHexDigest(t *testing.T) {
	assert.True(t, IsHexDigest("00ff"))
	assert.True(t, IsHexDigest("ABCDEF"))
	assert.False(t, IsHexDigest(""))
	assert.False(t, IsHexDigest("abc"))
	assert.False(t, IsHexDigest("0xab"))
	assert.False(t, IsHexDigest("gg"))
}

func fillRandom(rng *rand.Rand, b []byte) {
	for i := range b {
		b[i] = byte(rng.UintN(256))
	}
}
