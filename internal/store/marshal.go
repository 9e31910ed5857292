package store

import (
	"fmt"

	"github.com/roach88/txprop/internal/ir"
)

// marshalDetail converts an event detail to canonical JSON TEXT for storage.
func marshalDetail(detail ir.Object) (string, error) {
	if detail == nil {
		detail = ir.Object{}
	}
	data, err := ir.MarshalCanonical(detail)
	if err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(data), nil
}

// unmarshalDetail parses canonical JSON TEXT back into an event detail.
func unmarshalDetail(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	obj, err := ir.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal detail: %w", err)
	}
	return obj, nil
}

func scanTxID(b []byte) (ir.TxID, error) {
	id, err := ir.TxIDFromBytes(b)
	if err != nil {
		return ir.NilTxID, fmt.Errorf("scan tx id: %w", err)
	}
	return id, nil
}
