package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the coordinator-side outcome of a distributed transaction.
// It is distinct from State, which tracks a local proxy.
type Status string

const (
	StatusActive    Status = "active"
	StatusCommitted Status = "committed"
	StatusAborted   Status = "aborted"
)

// Event kinds journaled by the reference coordinator.
const (
	EventPromoted      = "promoted"
	EventExported      = "exported"
	EventTransmitted   = "transmitted"
	EventReconstructed = "reconstructed"
	EventCommitted     = "committed"
	EventAborted       = "aborted"
	EventReleased      = "released"
)

// TxRecord is one row of the coordinator's transaction table.
type TxRecord struct {
	ID          TxID   `json:"id"`
	Status      Status `json:"status"`
	Origin      string `json:"origin"`
	Whereabouts []byte `json:"whereabouts"`
	Seq         int64  `json:"seq"`
}

// TxEvent is one journaled coordinator event.
// ID is content-addressed via EventID.
type TxEvent struct {
	ID     string `json:"id"`
	TxID   TxID   `json:"tx_id"`
	Kind   string `json:"kind"`
	Detail Object `json:"detail"`
	Seq    int64  `json:"seq"`
}

// NewTxEvent builds an event and computes its content-addressed ID.
func NewTxEvent(txID TxID, kind string, detail Object, seq int64) (TxEvent, error) {
	if detail == nil {
		detail = Object{}
	}
	id, err := EventID(txID, kind, detail, seq)
	if err != nil {
		return TxEvent{}, err
	}
	return TxEvent{ID: id, TxID: txID, Kind: kind, Detail: detail, Seq: seq}, nil
}

// ParseObject decodes canonical JSON produced by MarshalCanonical.
// Integers come back as int64 so a parsed object re-marshals identically.
func ParseObject(data []byte) (Object, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Object{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}
	v, err := fromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parse object: %w", err)
	}
	return v.(Object), nil
}

func fromJSON(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		obj := make(Object, len(x))
		for k, val := range x {
			conv, err := fromJSON(val)
			if err != nil {
				return nil, err
			}
			obj[k] = conv
		}
		return obj, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			conv, err := fromJSON(val)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %s", x)
		}
		return n, nil
	case string, bool:
		return x, nil
	case nil:
		return nil, fmt.Errorf("null values are not supported")
	default:
		return nil, fmt.Errorf("unsupported JSON type %T", v)
	}
}
