package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

const (
	codeMin   = 100000
	codeRange = 900000
)

type Issued struct {
	Code      string
	Token     string
	ExpiresAt time.Time
}

type Issuer struct {
	codec    *Codec
	ttl      time.Duration
	now      func() time.Time
	nextCode func() (string, error)
}

type IssuerOption func(*Issuer)

func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

func WithCodeSource(next func() (string, error)) IssuerOption {
	return func(i *Issuer) {
		if next != nil {
			i.nextCode = next
		}
	}
}

func NewIssuer(codec *Codec, ttl time.Duration, opts ...IssuerOption) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{
		codec:    codec,
		ttl:      ttl,
		now:      time.Now,
		nextCode: RandomCode,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue creates a fresh code for email and the token that proves it.
// Nothing is stored server-side.
func (i *Issuer) Issue(email string) (Issued, error) {
	code, err := i.nextCode()
	if err != nil {
		return Issued{}, fmt.Errorf("generate otp code: %w", err)
	}

	expiresAt := i.now().Add(i.ttl)
	token, err := i.codec.Sign(Payload{
		Email: email,
		Code:  code,
		Exp:   expiresAt.UnixMilli(),
		Nonce: uuid.NewString(),
	})
	if err != nil {
		return Issued{}, err
	}

	return Issued{Code: code, Token: token, ExpiresAt: expiresAt}, nil
}

// RandomCode returns a uniformly distributed six digit code in [100000, 999999].
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
