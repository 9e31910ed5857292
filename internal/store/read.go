package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/txprop/internal/ir"
)

// ReadTransaction retrieves a single transaction by id.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) ReadTransaction(ctx context.Context, id ir.TxID) (ir.TxRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, origin, whereabouts, seq
		FROM transactions
		WHERE id = ?
	`, id.Bytes())

	rec, err := scanTransaction(row)
	if err != nil {
		if isNoRows(err) {
			return ir.TxRecord{}, fmt.Errorf("read transaction %s: %w", id, ErrNotFound)
		}
		return ir.TxRecord{}, fmt.Errorf("read transaction %s: %w", id, err)
	}
	return rec, nil
}

// ListTransactions returns all transactions ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListTransactions(ctx context.Context) ([]ir.TxRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, origin, whereabouts, seq
		FROM transactions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	recs := []ir.TxRecord{}
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return recs, nil
}

// ReadEvents returns the journal for one transaction ordered by
// seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEvents(ctx context.Context, id ir.TxID) ([]ir.TxEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_id, kind, detail, seq
		FROM tx_events
		WHERE tx_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, id.Bytes())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.TxEvent{}
	for rows.Next() {
		var (
			ev     ir.TxEvent
			txID   []byte
			detail string
		)
		if err := rows.Scan(&ev.ID, &txID, &ev.Kind, &detail, &ev.Seq); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.TxID, err = scanTxID(txID); err != nil {
			return nil, err
		}
		if ev.Detail, err = unmarshalDetail(detail); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// MaxSeq returns the highest seq recorded in either table, or 0 for an
// empty ledger. The coordinator resumes its clock from this value.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM transactions
			UNION ALL
			SELECT seq FROM tx_events
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (ir.TxRecord, error) {
	var (
		rec    ir.TxRecord
		id     []byte
		status string
	)
	if err := row.Scan(&id, &status, &rec.Origin, &rec.Whereabouts, &rec.Seq); err != nil {
		return ir.TxRecord{}, err
	}
	txID, err := scanTxID(id)
	if err != nil {
		return ir.TxRecord{}, err
	}
	rec.ID = txID
	rec.Status = ir.Status(status)
	if rec.Whereabouts == nil {
		rec.Whereabouts = []byte{}
	}
	return rec, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
