package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrBadSignature     = errors.New("signature mismatch")
)

// Sign computes the hex HMAC-SHA256 digest senders put in X-Signature.
// The outbound delivery sink uses the same scheme.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks the signature header against the raw body using
// the subscription secret. Fails closed: an absent or malformed header is
// rejected without touching the payload further. Comparison is constant
// time.
func VerifySignature(rawBody []byte, signatureHeader, secret string) error {
	if signatureHeader == "" {
		return ErrMissingSignature
	}

	// Some senders prefix the digest with the algorithm.
	signatureHeader = strings.TrimPrefix(signatureHeader, "sha256=")

	provided, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)

	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}
