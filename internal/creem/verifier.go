package creem

import (
	"quill/internal/signing"
	"quill/internal/types"
)

// Verifier checks both Creem signature schemes. The redirect scheme is keyed
// by the API key, the webhook scheme by the webhook signing secret.
type Verifier struct {
	apiKey        types.SecretString
	webhookSecret types.SecretString
}

// NewVerifier creates a Verifier from the two provider secrets.
func NewVerifier(apiKey, webhookSecret types.SecretString) *Verifier {
	return &Verifier{apiKey: apiKey, webhookSecret: webhookSecret}
}

// VerifyRedirect reports whether params carry a valid redirect signature.
// A missing signature is never valid.
func (v *Verifier) VerifyRedirect(params RedirectParameters) bool {
	if params.Signature == nil || v.apiKey.IsZero() {
		return false
	}
	message := signing.Canonicalize(params.ParameterSet(), signing.SignatureField)
	return signing.VerifyMessage([]byte(message), v.apiKey.Bytes(), *params.Signature)
}

// VerifyWebhook reports whether signature matches the raw body bytes.
// body must be the bytes exactly as received.
func (v *Verifier) VerifyWebhook(body []byte, signature string) bool {
	if v.webhookSecret.IsZero() {
		return false
	}
	return signing.VerifyMessage(body, v.webhookSecret.Bytes(), signature)
}
