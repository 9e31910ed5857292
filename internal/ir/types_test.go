package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxID_RoundTripString(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")
	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", id.String())
	assert.Equal(t, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, id.Bytes())
}

func TestTxID_BytesIsCopy(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")
	b := id.Bytes()
	b[0] = 0xff
	assert.Equal(t, byte(0x00), id[0])
}

func TestTxIDFromBytes(t *testing.T) {
	raw := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	id, err := TxIDFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, MustParseTxID("00112233-4455-6677-8899-aabbccddeeff"), id)

	_, err = TxIDFromBytes(raw[:15])
	assert.Error(t, err)
}

func TestNewTxID_Unique(t *testing.T) {
	a, err := NewTxID()
	require.NoError(t, err)
	b, err := NewTxID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.True(t, NilTxID.IsZero())
}

func TestParseTxID_Invalid(t *testing.T) {
	_, err := ParseTxID("not-a-uuid")
	assert.Error(t, err)
}

func TestPromoterTypeDTC(t *testing.T) {
	assert.Equal(t, "14229753-ffe1-428d-82b7-df73045cb8da", PromoterTypeDTC.String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "promoted", StatePromoted.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "disposed", StateDisposed.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateActive.Terminal())
	assert.False(t, StatePromoted.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateDisposed.Terminal())
}

func TestError_Classification(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		code ErrorCode
	}{
		{"null argument", NewNullArgumentError("export", "transaction"), IsNullArgument, ErrCodeNullArgument},
		{"disposed", NewDisposedError("promote", id), IsDisposed, ErrCodeDisposed},
		{"completed", NewCompletedError("promote", id), IsCompleted, ErrCodeCompleted},
		{"not supported", NewNotSupportedError("promote", id, "no coordinator"), IsNotSupported, ErrCodeNotSupported},
		{"invalid format", NewInvalidFormatError("decode token", 3, 24), IsInvalidFormat, ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.is(wrapped), "classification must survive wrapping")
		})
	}
}

func TestError_Message(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")
	err := NewDisposedError("promote", id)
	assert.Equal(t, "DISPOSED: promote: transaction has been disposed (tx=00112233-4455-6677-8899-aabbccddeeff)", err.Error())

	err = NewInvalidFormatError("decode token", 3, 24)
	assert.Equal(t, "INVALID_FORMAT: decode token: buffer has 3 bytes, minimum is 24", err.Error())

	cause := errors.New("boom")
	wrapped := &Error{Code: ErrCodeNotSupported, Err: cause}
	assert.Equal(t, "NOT_SUPPORTED: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodeOf_Foreign(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestParseErrorCode(t *testing.T) {
	c, ok := ParseErrorCode("DISPOSED")
	assert.True(t, ok)
	assert.Equal(t, ErrCodeDisposed, c)

	_, ok = ParseErrorCode("BOGUS")
	assert.False(t, ok)
}

func TestTxID_JSON(t *testing.T) {
	id := MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")

	data, err := json.Marshal(struct {
		ID TxID `json:"id"`
	}{id})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"00112233-4455-6677-8899-aabbccddeeff"}`, string(data))

	var back struct {
		ID TxID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &back))
}
