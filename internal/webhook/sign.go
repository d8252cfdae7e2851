// Package webhook implements the signed webhook exchange between the site
// and its agents: HMAC-SHA256 signatures over message bodies, and outbound
// delivery to agent callback URLs.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header names shared by both directions of the webhook exchange.
const (
	SignatureHeader = "X-Ultra-Instinct-Signature"
	TimestampHeader = "X-Ultra-Instinct-Timestamp"
	KeyHeader       = "X-Ultra-Instinct-Key"
)

// Sign returns the hex HMAC-SHA256 of body under secret. Used for webhook
// payloads, where the signature covers the verbatim body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignRequest returns the signature for an API request: HMAC-SHA256 over the
// timestamp concatenated with the body.
func SignRequest(secret string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a body signature in constant time. An empty secret never
// verifies: a site without a configured secret accepts no signed traffic.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyRequest checks a timestamp+body request signature in constant time.
func VerifyRequest(secret string, timestamp string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignRequest(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
