package otp

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("test-secret"))
	payloads := []Payload{
		{Email: "s@iitk.ac.in", Code: "123456", Exp: time.Now().Add(time.Minute).UnixMilli()},
		{Email: "a@x.ac.in", Code: "999999", Exp: 1, Nonce: "n-1"},
		{Email: "ünïcode@iitk.ac.in", Code: "100000", Exp: 1<<53 - 1},
	}

	for _, p := range payloads {
		token, err := c.Sign(p)
		require.NoError(t, err)

		got, ok := c.Verify(token)
		require.True(t, ok, "token %q", token)
		assert.Equal(t, p, got)
	}
}

func TestCodec_Deterministic(t *testing.T) {
	t.Parallel()

	p := Payload{Email: "s@iitk.ac.in", Code: "123456", Exp: 1700000000000}
	a, err := NewCodec([]byte("k")).Sign(p)
	require.NoError(t, err)
	b, err := NewCodec([]byte("k")).Sign(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := NewCodec([]byte("k2")).Sign(p)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestCodec_WireFormat(t *testing.T) {
	t.Parallel()

	token, err := NewCodec([]byte("k")).Sign(Payload{Email: "s@iitk.ac.in", Code: "123456", Exp: 42})
	require.NoError(t, err)

	body, sig, found := strings.Cut(token, ".")
	require.True(t, found)
	assert.NotContains(t, token, "=")

	raw, err := base64.RawURLEncoding.DecodeString(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"s@iitk.ac.in","code":"123456","exp":42}`, string(raw))

	digest, err := base64.RawURLEncoding.DecodeString(sig)
	require.NoError(t, err)
	assert.Len(t, digest, 32)
}

func TestCodec_TamperAnyCharacter(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("test-secret"))
	token, err := c.Sign(Payload{Email: "s@iitk.ac.in", Code: "123456", Exp: 1700000000000, Nonce: "abc"})
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		for _, r := range []byte{alphabet[(strings.IndexByte(alphabet, token[i])+1)%len(alphabet)], '.'} {
			if token[i] == '.' && r == '.' {
				continue
			}
			b := []byte(token)
			b[i] = r
			_, ok := c.Verify(string(b))
			assert.False(t, ok, "tampered at %d with %q", i, r)
		}
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewCodec([]byte("one")).Sign(Payload{Email: "s@iitk.ac.in", Code: "123456", Exp: 1})
	require.NoError(t, err)

	_, ok := NewCodec([]byte("two")).Verify(token)
	assert.False(t, ok)
}

func TestCodec_MalformedNeverPanics(t *testing.T) {
	t.Parallel()

	c := NewCodec([]byte("test-secret"))
	valid, err := c.Sign(Payload{Email: "s@iitk.ac.in", Code: "123456", Exp: 1})
	require.NoError(t, err)
	body, sig, _ := strings.Cut(valid, ".")

	// A correctly signed body that is not JSON.
	garbage := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	garbageSig, err := c.method.Sign(garbage, c.secret)
	require.NoError(t, err)

	inputs := []string{
		"",
		".",
		"abc",
		body,
		body + ".",
		"." + sig,
		body + "." + sig[:len(sig)-4],
		body + "." + sig + "AAAA",
		body + "." + "!!!!",
		body + "." + sig + "." + sig,
		"%%%." + sig,
		garbage + "." + base64.RawURLEncoding.EncodeToString(garbageSig),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, ok := c.Verify(in)
			assert.False(t, ok, "input %q", in)
		})
	}
}
