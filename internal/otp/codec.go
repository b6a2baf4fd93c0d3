// Package otp issues and verifies stateless one-time passcodes. A code travels
// to the client inside a signed token; validity is the signature plus the
// embedded expiry, so any replica holding the secret can verify it.
package otp

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is the content carried inside a signed token. Exp is the absolute
// expiry in epoch milliseconds.
type Payload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Exp   int64  `json:"exp"`
	Nonce string `json:"nonce,omitempty"`
}

// Codec signs payloads as base64url(JSON) "." base64url(HMAC-SHA256).
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

// NewCodec returns a codec keyed by secret. The secret must be non-empty.
func NewCodec(secret []byte) *Codec {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key, method: jwt.SigningMethodHS256}
}

var (
	enc = base64.RawURLEncoding
	// Strict decoding rejects non-zero trailing bits, so no two signature
	// strings decode to the same digest.
	dec = base64.RawURLEncoding.Strict()
)

func (c *Codec) Sign(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode otp payload: %w", err)
	}
	body := enc.EncodeToString(raw)

	sig, err := c.method.Sign(body, c.secret)
	if err != nil {
		return "", fmt.Errorf("sign otp payload: %w", err)
	}
	return body + "." + enc.EncodeToString(sig), nil
}

// Verify returns the payload of an authentic token. Every failure reports
// false without saying which step failed, and the body is only decoded once
// the signature has been checked.
func (c *Codec) Verify(token string) (Payload, bool) {
	if token == "" {
		return Payload{}, false
	}

	body, signature, found := strings.Cut(token, ".")
	if !found || body == "" || signature == "" {
		return Payload{}, false
	}

	provided, err := dec.DecodeString(signature)
	if err != nil {
		return Payload{}, false
	}
	if len(provided) != sha256.Size {
		return Payload{}, false
	}
	if err := c.method.Verify(body, provided, c.secret); err != nil {
		return Payload{}, false
	}

	raw, err := dec.DecodeString(body)
	if err != nil {
		return Payload{}, false
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, false
	}
	return p, true
}
