package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign computes the X-Signature header value for a verbatim serialized
// body and a tenant's secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over body and compares it to signature
// in constant time, exactly as a receiver is expected to.
func Verify(body []byte, secret, signature string) bool {
	expected := Sign(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
