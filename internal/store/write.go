package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/txprop/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateTransaction inserts a transaction row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; inserted reports whether
// a new row was written.
func (s *Store) CreateTransaction(ctx context.Context, rec ir.TxRecord) (inserted bool, err error) {
	return insertTransaction(ctx, s.db, rec)
}

// CreateTransactionWithEvent inserts a transaction row and its first journal
// event atomically. If the row already exists nothing is written and
// inserted is false. If the event cannot be written the row is rolled back.
func (s *Store) CreateTransactionWithEvent(ctx context.Context, rec ir.TxRecord, ev ir.TxEvent) (inserted bool, err error) {
	detailJSON, err := marshalDetail(ev.Detail)
	if err != nil {
		return false, fmt.Errorf("create transaction with event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("create transaction with event: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted, err = insertTransaction(ctx, tx, rec)
	if err != nil || !inserted {
		return false, err
	}
	if err := insertEvent(ctx, tx, ev, detailJSON); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("create transaction with event: commit: %w", err)
	}
	return true, nil
}

func insertTransaction(ctx context.Context, db execer, rec ir.TxRecord) (bool, error) {
	if rec.Status == "" {
		rec.Status = ir.StatusActive
	}
	where := rec.Whereabouts
	if where == nil {
		where = []byte{}
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO transactions (id, status, origin, whereabouts, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID.Bytes(),
		string(rec.Status),
		rec.Origin,
		where,
		rec.Seq,
	)
	if err != nil {
		return false, fmt.Errorf("create transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create transaction: rows affected: %w", err)
	}
	return n > 0, nil
}

// TransitionStatus moves a transaction from one status to another.
//
// Returns ErrNotFound if the row does not exist and ErrStatusConflict if it
// is not in the from status. A transition to the status the row already has
// is a no-op and reports changed=false.
func (s *Store) TransitionStatus(ctx context.Context, id ir.TxID, from, to ir.Status, seq int64) (changed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("transition status: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = ?`, id.Bytes()).Scan(&current)
	if err != nil {
		if isNoRows(err) {
			return false, fmt.Errorf("transition status %s: %w", id, ErrNotFound)
		}
		return false, fmt.Errorf("transition status: select: %w", err)
	}

	switch ir.Status(current) {
	case to:
		return false, nil
	case from:
	default:
		return false, fmt.Errorf("transition status %s: %s -> %s from %s: %w", id, from, to, current, ErrStatusConflict)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = ?, seq = ? WHERE id = ?
	`, string(to), seq, id.Bytes()); err != nil {
		return false, fmt.Errorf("transition status: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("transition status: commit: %w", err)
	}
	return true, nil
}

// WriteEvent appends an event to the journal.
// Uses ON CONFLICT(id) DO NOTHING: the id is content-addressed, so writing
// the same event twice is a no-op.
//
// Note: The transaction referenced by TxID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, ev ir.TxEvent) error {
	detailJSON, err := marshalDetail(ev.Detail)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return insertEvent(ctx, s.db, ev, detailJSON)
}

func insertEvent(ctx context.Context, db execer, ev ir.TxEvent, detailJSON string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tx_events (id, tx_id, kind, detail, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.TxID.Bytes(),
		ev.Kind,
		detailJSON,
		ev.Seq,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
