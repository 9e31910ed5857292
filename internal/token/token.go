package token

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/txprop/internal/ir"
)

const (
	// TokenIDOffset is where the transaction id starts in a propagation token.
	TokenIDOffset = 8

	// TokenMinLen is the shortest valid propagation token.
	TokenMinLen = TokenIDOffset + ir.TxIDLen
)

// Version is the pair of version words leading a propagation token.
// Decoding never rejects a version; the words are carried through opaquely.
type Version struct {
	Major uint32
	Minor uint32
}

// DefaultVersion is written when the caller does not configure one.
var DefaultVersion = Version{Major: 1, Minor: 0}

// ParseVersion parses "major.minor".
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("parse token version %q: want major.minor", s)
	}
	ma, err := strconv.ParseUint(major, 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("parse token version %q: %w", s, err)
	}
	mi, err := strconv.ParseUint(minor, 10, 32)
	if err != nil {
		return Version{}, fmt.Errorf("parse token version %q: %w", s, err)
	}
	return Version{Major: uint32(ma), Minor: uint32(mi)}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// PropagationToken is a decoded transmitter propagation token.
type PropagationToken struct {
	Version Version
	ID      ir.TxID
	Payload []byte
}

// EncodeToken lays out version, id and payload in a new buffer.
func EncodeToken(v Version, id ir.TxID, payload []byte) []byte {
	buf := make([]byte, TokenMinLen+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], v.Major)
	binary.LittleEndian.PutUint32(buf[4:8], v.Minor)
	copy(buf[TokenIDOffset:TokenMinLen], id[:])
	copy(buf[TokenMinLen:], payload)
	return buf
}

// DecodeToken parses a propagation token.
// Returns an INVALID_FORMAT error when len(b) < TokenMinLen.
func DecodeToken(b []byte) (PropagationToken, error) {
	if len(b) < TokenMinLen {
		return PropagationToken{}, ir.NewInvalidFormatError("decode token", len(b), TokenMinLen)
	}
	var id ir.TxID
	copy(id[:], b[TokenIDOffset:TokenMinLen])

	payload := make([]byte, len(b)-TokenMinLen)
	copy(payload, b[TokenMinLen:])

	return PropagationToken{
		Version: Version{
			Major: binary.LittleEndian.Uint32(b[0:4]),
			Minor: binary.LittleEndian.Uint32(b[4:8]),
		},
		ID:      id,
		Payload: payload,
	}, nil
}

// PeekTokenID reads only the identifier window of a propagation token.
func PeekTokenID(b []byte) (ir.TxID, error) {
	if len(b) < TokenMinLen {
		return ir.NilTxID, ir.NewInvalidFormatError("decode token", len(b), TokenMinLen)
	}
	var id ir.TxID
	copy(id[:], b[TokenIDOffset:TokenMinLen])
	return id, nil
}

// Encode returns the wire form of t.
func (t PropagationToken) Encode() []byte {
	return EncodeToken(t.Version, t.ID, t.Payload)
}
