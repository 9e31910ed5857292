package grpccoord

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/txn"
)

const refLen = 16

func frame(ref [refLen]byte, body []byte) []byte {
	out := make([]byte, refLen+len(body))
	copy(out, ref[:])
	copy(out[refLen:], body)
	return out
}

func unframe(op string, b []byte) (ref [refLen]byte, body []byte, err error) {
	if len(b) < refLen {
		return ref, nil, ir.NewInvalidFormatError(op, len(b), refLen)
	}
	copy(ref[:], b[:refLen])
	body = make([]byte, len(b)-refLen)
	copy(body, b[refLen:])
	return ref, body, nil
}

// handleReply is the [handle ref][tx id] answer of handle-producing methods.
func encodeHandleReply(ref uuid.UUID, id ir.TxID) []byte {
	return frame(ref, id[:])
}

func decodeHandleReply(op string, b []byte) (uuid.UUID, ir.TxID, error) {
	if len(b) != 2*refLen {
		return uuid.Nil, ir.NilTxID, fmt.Errorf("%s: handle reply has %d bytes, want %d", op, len(b), 2*refLen)
	}
	var ref uuid.UUID
	var id ir.TxID
	copy(ref[:], b[:refLen])
	copy(id[:], b[refLen:])
	return ref, id, nil
}

func encodeCommit(retaining bool, commitType txn.CommitType, reserved uint32) []byte {
	body := make([]byte, 9)
	if retaining {
		body[0] = 1
	}
	binary.LittleEndian.PutUint32(body[1:5], uint32(commitType))
	binary.LittleEndian.PutUint32(body[5:9], reserved)
	return body
}

func decodeCommit(b []byte) (retaining bool, commitType txn.CommitType, reserved uint32, err error) {
	if len(b) != 9 {
		return false, 0, 0, ir.NewInvalidFormatError("decode commit", len(b), 9)
	}
	return b[0] != 0, txn.CommitType(binary.LittleEndian.Uint32(b[1:5])), binary.LittleEndian.Uint32(b[5:9]), nil
}

func encodeAbort(reason []byte, retaining, async bool) []byte {
	body := make([]byte, 2+len(reason))
	if retaining {
		body[0] = 1
	}
	if async {
		body[1] = 1
	}
	copy(body[2:], reason)
	return body
}

func decodeAbort(b []byte) (reason []byte, retaining, async bool, err error) {
	if len(b) < 2 {
		return nil, false, false, ir.NewInvalidFormatError("decode abort", len(b), 2)
	}
	return b[2:], b[0] != 0, b[1] != 0, nil
}

// info layout: [uow 16][isolation i32][flags u32][description]
func encodeInfo(info txn.TransactionInfo) []byte {
	body := make([]byte, 24+len(info.Description))
	copy(body, info.UOW[:])
	binary.LittleEndian.PutUint32(body[16:20], uint32(info.IsolationLevel))
	binary.LittleEndian.PutUint32(body[20:24], info.Flags)
	copy(body[24:], info.Description)
	return body
}

func decodeInfo(b []byte) (txn.TransactionInfo, error) {
	if len(b) < 24 {
		return txn.TransactionInfo{}, ir.NewInvalidFormatError("decode info", len(b), 24)
	}
	var info txn.TransactionInfo
	copy(info.UOW[:], b[:16])
	info.IsolationLevel = int32(binary.LittleEndian.Uint32(b[16:20]))
	info.Flags = binary.LittleEndian.Uint32(b[20:24])
	info.Description = string(b[24:])
	return info, nil
}
