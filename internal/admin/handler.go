package admin

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/ir"
)

// Ledger is the read side of the coordinator ledger.
type Ledger interface {
	Ping(ctx context.Context) error
	ReadTransaction(ctx context.Context, id ir.TxID) (ir.TxRecord, error)
	ListTransactions(ctx context.Context) ([]ir.TxRecord, error)
	ReadEvents(ctx context.Context, id ir.TxID) ([]ir.TxEvent, error)
}

// Registry lists live proxies.
type Registry interface {
	IDs() []ir.TxID
}

// Handler answers admin requests. Either dependency may be nil, in which
// case its routes report 503.
type Handler struct {
	ledger   Ledger
	registry Registry
	logger   *slog.Logger
}

// NewHandler builds a handler. A nil logger uses slog.Default().
func NewHandler(ledger Ledger, registry Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: ledger, registry: registry, logger: logger}
}

// TransactionDTO is the wire form of a ledger row.
type TransactionDTO struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Origin      string `json:"origin"`
	Whereabouts string `json:"whereabouts"`
	Address     string `json:"address,omitempty"`
	Seq         int64  `json:"seq"`
}

// EventDTO is the wire form of a journaled event.
type EventDTO struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Detail ir.Object `json:"detail"`
	Seq    int64     `json:"seq"`
}

// RegistryDTO lists live proxy identifiers.
type RegistryDTO struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

func toTransactionDTO(rec ir.TxRecord) TransactionDTO {
	dto := TransactionDTO{
		ID:          rec.ID.String(),
		Status:      string(rec.Status),
		Origin:      rec.Origin,
		Whereabouts: hex.EncodeToString(rec.Whereabouts),
		Seq:         rec.Seq,
	}
	if addr, _, err := coordinator.DecodeWhereabouts(rec.Whereabouts); err == nil {
		dto.Address = addr
	}
	return dto
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeSuccess(w, http.StatusOK, "ok", nil)
		return
	}
	if err := h.ledger.Ping(r.Context()); err != nil {
		h.logger.Warn("ledger ping failed", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, "ok", nil)
}

func (h *Handler) requireLedger(w http.ResponseWriter, r *http.Request) bool {
	if h.ledger == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "no ledger configured")
		return false
	}
	return true
}

func (h *Handler) txID(w http.ResponseWriter, r *http.Request) (ir.TxID, bool) {
	id, err := ir.ParseTxID(chi.URLParam(r, "tx_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", err.Error())
		return ir.NilTxID, false
	}
	return id, true
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	if !h.requireLedger(w, r) {
		return
	}
	recs, err := h.ledger.ListTransactions(r.Context())
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	out := make([]TransactionDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toTransactionDTO(rec))
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireLedger(w, r) {
		return
	}
	id, ok := h.txID(w, r)
	if !ok {
		return
	}
	rec, err := h.ledger.ReadTransaction(r.Context(), id)
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, "", toTransactionDTO(rec))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	if !h.requireLedger(w, r) {
		return
	}
	id, ok := h.txID(w, r)
	if !ok {
		return
	}
	if _, err := h.ledger.ReadTransaction(r.Context(), id); err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	events, err := h.ledger.ReadEvents(r.Context(), id)
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	out := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, EventDTO{ID: ev.ID, Kind: ev.Kind, Detail: ev.Detail, Seq: ev.Seq})
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) listRegistry(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "no registry configured")
		return
	}
	ids := h.registry.IDs()
	out := RegistryDTO{Count: len(ids), IDs: make([]string, len(ids))}
	for i, id := range ids {
		out.IDs[i] = id.String()
	}
	writeSuccess(w, http.StatusOK, "", out)
}
