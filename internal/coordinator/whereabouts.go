package coordinator

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/roach88/txprop/internal/ir"
)

const (
	whereaboutsMagic     = "TXW1"
	whereaboutsHeaderLen = len(whereaboutsMagic) + 2
)

// EncodeWhereabouts returns the locator bytes for a coordinator at addr.
// Addresses longer than 65535 bytes are truncated at the last rune boundary
// that fits.
func EncodeWhereabouts(addr string) []byte {
	if len(addr) > math.MaxUint16 {
		n := math.MaxUint16
		for n > 0 && !utf8.RuneStart(addr[n]) {
			n--
		}
		addr = addr[:n]
	}
	buf := make([]byte, whereaboutsHeaderLen+len(addr))
	copy(buf, whereaboutsMagic)
	binary.LittleEndian.PutUint16(buf[len(whereaboutsMagic):], uint16(len(addr)))
	copy(buf[whereaboutsHeaderLen:], addr)
	return buf
}

// DecodeWhereabouts reads a locator from the front of b and returns the
// address and the number of bytes it occupies.
func DecodeWhereabouts(b []byte) (addr string, n int, err error) {
	if len(b) < whereaboutsHeaderLen {
		return "", 0, ir.NewInvalidFormatError("decode whereabouts", len(b), whereaboutsHeaderLen)
	}
	if string(b[:len(whereaboutsMagic)]) != whereaboutsMagic {
		return "", 0, &ir.Error{
			Code:    ir.ErrCodeInvalidFormat,
			Op:      "decode whereabouts",
			Message: fmt.Sprintf("bad magic %q", b[:len(whereaboutsMagic)]),
		}
	}
	l := int(binary.LittleEndian.Uint16(b[len(whereaboutsMagic):]))
	n = whereaboutsHeaderLen + l
	if len(b) < n {
		return "", 0, ir.NewInvalidFormatError("decode whereabouts", len(b), n)
	}
	return string(b[whereaboutsHeaderLen:n]), n, nil
}

// WhereaboutsLen returns the encoded length of the locator at the front of
// b. It lets token.DecodeCookie split a cookie produced by this coordinator.
func WhereaboutsLen(b []byte) (int, error) {
	_, n, err := DecodeWhereabouts(b)
	return n, err
}
