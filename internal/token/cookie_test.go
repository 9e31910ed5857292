package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txprop/internal/ir"
)

func TestCookie_Scenario(t *testing.T) {
	sig, err := ParseSignature("a1a2a3a4-b1b2-c1c2-d1d2-e1e2e3e4e5e6")
	require.NoError(t, err)

	b := EncodeCookie(Cookie{
		Signature:   sig,
		ID:          testID,
		Whereabouts: []byte{},
		Payload:     []byte("X"),
	})

	require.Len(t, b, 33)
	assert.Equal(t, sig[:], b[0:16])
	assert.Equal(t, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, b[16:32])

	got, err := DecodeCookie(b, 0)
	require.NoError(t, err)
	assert.Equal(t, sig, got.Signature)
	assert.Equal(t, testID, got.ID)
	assert.Empty(t, got.Whereabouts)
	assert.Equal(t, []byte("X"), got.Payload)
}

func TestCookie_RoundTripWithWhereabouts(t *testing.T) {
	in := Cookie{
		Signature:   DefaultCookieSignature,
		ID:          testID,
		Whereabouts: []byte("node-a:7400"),
		Payload:     []byte(`{"coordinator":"a"}`),
	}
	b := in.Encode()
	require.Len(t, b, CookieMinLen+len(in.Whereabouts)+len(in.Payload))

	got, err := DecodeCookie(b, len(in.Whereabouts))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestDecodeCookie_MinimumLength(t *testing.T) {
	for n := 0; n < CookieMinLen; n++ {
		_, err := DecodeCookie(make([]byte, n), 0)
		require.Error(t, err, "len=%d", n)
		assert.True(t, ir.IsInvalidFormat(err), "len=%d: %v", n, err)
	}

	got, err := DecodeCookie(make([]byte, CookieMinLen), 0)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
	assert.Empty(t, got.Whereabouts)
}

func TestDecodeCookie_WhereaboutsLongerThanBody(t *testing.T) {
	b := EncodeCookie(Cookie{ID: testID, Whereabouts: []byte("abc")})

	_, err := DecodeCookie(b, 4)
	assert.True(t, ir.IsInvalidFormat(err))

	got, err := DecodeCookie(b, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got.Whereabouts)
	assert.Empty(t, got.Payload)
}

func TestDecodeCookie_NegativeWhereabouts(t *testing.T) {
	_, err := DecodeCookie(make([]byte, 40), -1)
	assert.True(t, ir.IsInvalidFormat(err))
}

func TestCookie_EncodeCopiesInputs(t *testing.T) {
	where := []byte("where")
	payload := []byte("payload")
	b := EncodeCookie(Cookie{ID: testID, Whereabouts: where, Payload: payload})

	where[0] = 'X'
	payload[0] = 'X'

	got, err := DecodeCookie(b, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("where"), got.Whereabouts)
	assert.Equal(t, []byte("payload"), got.Payload)
}

func TestCookie_DecodeDoesNotAlias(t *testing.T) {
	b := EncodeCookie(Cookie{ID: testID, Whereabouts: []byte("w"), Payload: []byte("p")})
	got, err := DecodeCookie(b, 1)
	require.NoError(t, err)

	for i := range b {
		b[i] = 0xff
	}
	assert.Equal(t, testID, got.ID)
	assert.Equal(t, []byte("w"), got.Whereabouts)
	assert.Equal(t, []byte("p"), got.Payload)
}

func TestPeekCookieID(t *testing.T) {
	b := EncodeCookie(Cookie{ID: testID})
	id, err := PeekCookieID(b)
	require.NoError(t, err)
	assert.Equal(t, testID, id)

	_, err = PeekCookieID(b[:CookieMinLen-1])
	assert.True(t, ir.IsInvalidFormat(err))
}

func TestSignature(t *testing.T) {
	assert.Equal(t, "6d3a0f5e-2c41-4b8e-9f17-a0c5e8d2b364", DefaultCookieSignature.String())

	_, err := ParseSignature("nope")
	assert.Error(t, err)
}
