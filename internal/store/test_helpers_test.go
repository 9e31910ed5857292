package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/txprop/internal/ir"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates an active transaction record.
func createTestRecord(id string, seq int64) ir.TxRecord {
	return ir.TxRecord{
		ID:          ir.MustParseTxID(id),
		Status:      ir.StatusActive,
		Origin:      "local",
		Whereabouts: []byte("TXW1-test"),
		Seq:         seq,
	}
}

// mustCreate inserts rec and fails the test on error.
func mustCreate(t *testing.T, s *Store, rec ir.TxRecord) {
	t.Helper()
	if _, err := s.CreateTransaction(context.Background(), rec); err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}
}

// mustEvent builds and writes an event.
func mustEvent(t *testing.T, s *Store, id ir.TxID, kind string, detail ir.Object, seq int64) ir.TxEvent {
	t.Helper()
	ev, err := ir.NewTxEvent(id, kind, detail, seq)
	if err != nil {
		t.Fatalf("NewTxEvent() failed: %v", err)
	}
	if err := s.WriteEvent(context.Background(), ev); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}
	return ev
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(list []string, s string) bool {
	return slices.Contains(list, s)
}
