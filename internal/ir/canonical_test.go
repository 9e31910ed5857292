package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(Object{"tx": "a", "coordinator": "b", "seq": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, `{"coordinator":"b","seq":3,"tx":"a"}`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+E000 sorts before U+1F600 in UTF-8 but after it in UTF-16 (surrogates are 0xD83D...).
	got, err := MarshalCanonical(Object{"\U0001F600": 1, "\uE000": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(got))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))
}

func TestMarshalCanonical_EscapedBackslashPreserved(t *testing.T) {
	got, err := MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestMarshalCanonical_Nested(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": []any{true, false, "x"},
		"a": Object{"z": 1, "y": int64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":2,"z":1},"b":[true,false,"x"]}`, string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"null", nil},
		{"float64", 1.5},
		{"float32", float32(2)},
		{"nested null", Object{"a": nil}},
		{"unsupported", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestEventID_Deterministic(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")

	a, err := EventID(id, "import", Object{"origin": "node-a"}, 7)
	require.NoError(t, err)
	b, err := EventID(id, "import", Object{"origin": "node-a"}, 7)
	require.NoError(t, err)
	c, err := EventID(id, "import", Object{"origin": "node-a"}, 8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestEventID_NilDetail(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")
	a, err := EventID(id, "promote", nil, 1)
	require.NoError(t, err)
	b, err := EventID(id, "promote", Object{}, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPayloadDigest_DomainSeparated(t *testing.T) {
	assert.NotEqual(t, PayloadDigest([]byte("x")), hashWithDomain(DomainEvent, []byte("x")))
	assert.Equal(t, PayloadDigest([]byte("x")), PayloadDigest([]byte("x")))
}
