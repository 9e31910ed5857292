package token

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
)

const (
	// SignatureLen is the size of the export cookie signature.
	SignatureLen = 16

	// CookieIDOffset is where the transaction id starts in an export cookie.
	CookieIDOffset = SignatureLen

	// CookieMinLen is the shortest valid export cookie.
	CookieMinLen = CookieIDOffset + ir.TxIDLen
)

// Signature is the 16-byte tag leading an export cookie.
type Signature [SignatureLen]byte

// DefaultCookieSignature is written when the caller does not configure one.
var DefaultCookieSignature = Signature(uuid.MustParse("6d3a0f5e-2c41-4b8e-9f17-a0c5e8d2b364"))

// ParseSignature parses a UUID-formatted signature.
func ParseSignature(s string) (Signature, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Signature{}, fmt.Errorf("parse cookie signature %q: %w", s, err)
	}
	return Signature(u), nil
}

// String returns the signature in UUID form.
func (s Signature) String() string {
	return uuid.UUID(s).String()
}

// Cookie is a decoded export cookie.
type Cookie struct {
	Signature   Signature
	ID          ir.TxID
	Whereabouts []byte
	Payload     []byte
}

// EncodeCookie lays out signature, id, whereabouts and payload in a new buffer.
func EncodeCookie(c Cookie) []byte {
	buf := make([]byte, CookieMinLen+len(c.Whereabouts)+len(c.Payload))
	copy(buf[0:CookieIDOffset], c.Signature[:])
	copy(buf[CookieIDOffset:CookieMinLen], c.ID[:])
	n := copy(buf[CookieMinLen:], c.Whereabouts)
	copy(buf[CookieMinLen+n:], c.Payload)
	return buf
}

// DecodeCookie parses an export cookie.
//
// The cookie carries no length prefix for the whereabouts; the receiver
// supplies whereaboutsLen (0 puts everything after the id into Payload).
// Returns an INVALID_FORMAT error when len(b) < CookieMinLen+whereaboutsLen.
func DecodeCookie(b []byte, whereaboutsLen int) (Cookie, error) {
	if whereaboutsLen < 0 {
		return Cookie{}, &ir.Error{
			Code:    ir.ErrCodeInvalidFormat,
			Op:      "decode cookie",
			Message: fmt.Sprintf("negative whereabouts length %d", whereaboutsLen),
		}
	}
	minLen := CookieMinLen + whereaboutsLen
	if len(b) < minLen {
		return Cookie{}, ir.NewInvalidFormatError("decode cookie", len(b), minLen)
	}

	var c Cookie
	copy(c.Signature[:], b[0:CookieIDOffset])
	copy(c.ID[:], b[CookieIDOffset:CookieMinLen])

	c.Whereabouts = make([]byte, whereaboutsLen)
	copy(c.Whereabouts, b[CookieMinLen:minLen])

	c.Payload = make([]byte, len(b)-minLen)
	copy(c.Payload, b[minLen:])
	return c, nil
}

// PeekCookieID reads only the identifier window of an export cookie.
func PeekCookieID(b []byte) (ir.TxID, error) {
	if len(b) < CookieMinLen {
		return ir.NilTxID, ir.NewInvalidFormatError("decode cookie", len(b), CookieMinLen)
	}
	var id ir.TxID
	copy(id[:], b[CookieIDOffset:CookieMinLen])
	return id, nil
}

// Encode returns the wire form of c.
func (c Cookie) Encode() []byte {
	return EncodeCookie(c)
}
