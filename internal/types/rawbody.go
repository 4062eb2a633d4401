package types

// RawBody is the exact byte sequence of a request body as it arrived on the
// wire. It is captured once per request, before any JSON decoding, and is
// the only valid input for webhook signature verification: a decoded and
// re-encoded payload is not guaranteed to be byte-identical to what the
// provider signed.
//
// A RawBody is immutable. Bytes returns a copy so callers cannot alter what
// the verifier will see.
type RawBody struct {
	data []byte
}

// NewRawBody takes ownership of data. The caller must not modify it afterwards.
func NewRawBody(data []byte) *RawBody {
	if data == nil {
		data = []byte{}
	}
	return &RawBody{data: data}
}

// Bytes returns a copy of the captured bytes.
func (b *RawBody) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the number of captured bytes.
func (b *RawBody) Len() int {
	return len(b.data)
}
