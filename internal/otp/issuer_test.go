package otp

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode_Range(t *testing.T) {
	t.Parallel()

	for i := 0; i < 2000; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestIssuer_Issue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	codec := NewCodec([]byte("k"))
	issuer := NewIssuer(codec, 0, WithClock(func() time.Time { return now }))

	issued, err := issuer.Issue("s@iitk.ac.in")
	require.NoError(t, err)

	assert.Len(t, issued.Code, 6)
	assert.Equal(t, now.Add(10*time.Minute), issued.ExpiresAt)
	assert.Equal(t, DefaultTTL, issuer.TTL())

	p, ok := codec.Verify(issued.Token)
	require.True(t, ok)
	assert.Equal(t, "s@iitk.ac.in", p.Email)
	assert.Equal(t, issued.Code, p.Code)
	assert.Equal(t, issued.ExpiresAt.UnixMilli(), p.Exp)
	assert.NotEmpty(t, p.Nonce)
}

func TestIssuer_FreshNoncePerIssue(t *testing.T) {
	t.Parallel()

	codec := NewCodec([]byte("k"))
	issuer := NewIssuer(codec, time.Minute, WithCodeSource(func() (string, error) { return "111111", nil }))

	a, err := issuer.Issue("s@iitk.ac.in")
	require.NoError(t, err)
	b, err := issuer.Issue("s@iitk.ac.in")
	require.NoError(t, err)

	assert.Equal(t, "111111", a.Code)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestIssuer_CodeSourceError(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer(NewCodec([]byte("k")), time.Minute,
		WithCodeSource(func() (string, error) { return "", errors.New("entropy exhausted") }))

	_, err := issuer.Issue("s@iitk.ac.in")
	assert.Error(t, err)
}
