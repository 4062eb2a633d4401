package types

import "log/slog"

// redactedPlaceholder replaces secret values in logs and serialized output.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a credential such as the provider API key or the webhook
// signing secret. String, GoString, MarshalJSON and LogValue all return a
// redacted placeholder, so the value cannot leak through fmt, encoding/json
// or slog.
//
// Use Unmask (string) or Bytes (HMAC key material) when the raw value is
// genuinely required.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// GoString covers the %#v verb.
func (s SecretString) GoString() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}

// Bytes returns the raw value as a fresh byte slice, suitable as HMAC key
// material.
func (s SecretString) Bytes() []byte {
	return []byte(s)
}

// IsZero reports whether the secret is unset.
func (s SecretString) IsZero() bool {
	return s == ""
}

// LogValue implements slog.LogValuer so that structured log attributes holding
// a SecretString are redacted.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}
