package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent   = "txprop/event/v1"
	DomainPayload = "txprop/payload/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of a ledger event.
// The ID is stable across restarts given the same inputs, so re-journaling
// an identical event is a no-op.
func EventID(txID TxID, kind string, detail Object, seq int64) (string, error) {
	if detail == nil {
		detail = Object{}
	}
	obj := Object{
		"tx":     txID.String(),
		"kind":   kind,
		"detail": detail,
		"seq":    seq,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// PayloadDigest returns the domain-separated digest of a coordinator payload.
// Used in logs and the admin surface to refer to payloads without printing them.
func PayloadDigest(payload []byte) string {
	return hashWithDomain(DomainPayload, payload)
}
