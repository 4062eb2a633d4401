// Package signing implements the two HMAC-SHA256 signature schemes used by
// the payment provider: the canonical string-to-sign for success redirects and
// raw-body signing for webhooks. Everything in this package is pure and safe
// for concurrent use.
package signing

import (
	"slices"
	"strings"
)

// SignatureField is the reserved key under which a redirect carries its
// signature. It is never part of the signed string.
const SignatureField = "signature"

// ParameterSet maps parameter names to values. A nil value means the
// parameter was null or absent; both are excluded from the signed string.
type ParameterSet map[string]*string

// Canonicalize builds the string-to-sign for params:
//  1. drop signatureField
//  2. drop nil entries
//  3. sort keys byte-wise ascending (not locale-aware)
//  4. join as key=value pairs separated by '&', values passed through verbatim
//
// An empty result is a valid signing input.
func Canonicalize(params ParameterSet, signatureField string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == signatureField || v == nil {
			continue
		}
		keys = append(keys, k)
	}
	// Go string comparison is byte-wise, which is what both sides must agree on.
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(*params[k])
	}
	return b.String()
}

// Value returns a pointer to v, for building a ParameterSet inline.
func Value(v string) *string {
	return &v
}
