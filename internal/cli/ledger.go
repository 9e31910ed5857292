package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/store"
)

// LedgerRow is one transaction in ledger output.
type LedgerRow struct {
	TxID    string `json:"tx_id"`
	Status  string `json:"status"`
	Origin  string `json:"origin"`
	Address string `json:"address,omitempty"`
	Seq     int64  `json:"seq"`
}

// LedgerEvent is one journal entry in ledger output.
type LedgerEvent struct {
	Seq    int64     `json:"seq"`
	Kind   string    `json:"kind"`
	Detail ir.Object `json:"detail"`
}

// LedgerList is the output of ledger list.
type LedgerList struct {
	Transactions []LedgerRow `json:"transactions"`
}

// LedgerShow is the output of ledger show.
type LedgerShow struct {
	Transaction LedgerRow     `json:"transaction"`
	Events      []LedgerEvent `json:"events"`
}

func (l LedgerList) renderText(w io.Writer) {
	if len(l.Transactions) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	for _, row := range l.Transactions {
		fmt.Fprintf(w, "%s  %-9s  %-6s  seq=%d\n", row.TxID, row.Status, row.Origin, row.Seq)
	}
}

func (s LedgerShow) renderText(w io.Writer) {
	row := s.Transaction
	fmt.Fprintf(w, "tx_id:   %s\n", row.TxID)
	fmt.Fprintf(w, "status:  %s\n", row.Status)
	fmt.Fprintf(w, "origin:  %s\n", row.Origin)
	if row.Address != "" {
		fmt.Fprintf(w, "address: %s\n", row.Address)
	}
	fmt.Fprintf(w, "seq:     %d\n", row.Seq)
	fmt.Fprintln(w, "events:")
	for _, ev := range s.Events {
		detail, err := ir.MarshalCanonical(ev.Detail)
		if err != nil {
			detail = []byte("?")
		}
		fmt.Fprintf(w, "  %4d  %-14s %s\n", ev.Seq, ev.Kind, detail)
	}
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Read the local coordinator ledger",
		Long: `Read transactions and journal events from the SQLite ledger named by
ledger.path (or --ledger).

Examples:
  txprop ledger list
  txprop ledger show 0190a1b2-...
  txprop --ledger ./node-a.db ledger list --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List transactions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerList(cmd, rootOpts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <tx-id>",
		Short:         "Show a transaction and its journal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerShow(cmd, rootOpts, args[0])
		},
	})

	return cmd
}

// openLedger opens an existing ledger. Reading never creates a database.
func openLedger(opts *RootOptions) (*store.Store, error) {
	path := opts.Config.Ledger.Path
	if path != ":memory:" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("ledger not found: %s", path))
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open ledger", err)
	}
	return st, nil
}

func runLedgerList(cmd *cobra.Command, opts *RootOptions) error {
	out := opts.formatter(cmd)
	st, err := openLedger(opts)
	if err != nil {
		return out.Fail(asExitError(err))
	}
	defer st.Close()

	recs, err := st.ListTransactions(cmd.Context())
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "list transactions", err))
	}
	list := LedgerList{Transactions: make([]LedgerRow, 0, len(recs))}
	for _, rec := range recs {
		list.Transactions = append(list.Transactions, ledgerRow(rec))
	}
	return out.Success(list)
}

func runLedgerShow(cmd *cobra.Command, opts *RootOptions, arg string) error {
	out := opts.formatter(cmd)
	id, err := ir.ParseTxID(arg)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "parse tx id", err))
	}
	st, err := openLedger(opts)
	if err != nil {
		return out.Fail(asExitError(err))
	}
	defer st.Close()

	rec, err := st.ReadTransaction(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return out.Fail(WrapExitError(ExitFailure, "transaction not in ledger", err))
	}
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "read transaction", err))
	}
	events, err := st.ReadEvents(cmd.Context(), id)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "read events", err))
	}

	show := LedgerShow{
		Transaction: ledgerRow(rec),
		Events:      make([]LedgerEvent, 0, len(events)),
	}
	for _, ev := range events {
		show.Events = append(show.Events, LedgerEvent{Seq: ev.Seq, Kind: ev.Kind, Detail: ev.Detail})
	}
	return out.Success(show)
}

func ledgerRow(rec ir.TxRecord) LedgerRow {
	row := LedgerRow{
		TxID:   rec.ID.String(),
		Status: string(rec.Status),
		Origin: rec.Origin,
		Seq:    rec.Seq,
	}
	if addr, _, err := coordinator.DecodeWhereabouts(rec.Whereabouts); err == nil {
		row.Address = addr
	}
	return row
}

func asExitError(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(ExitCommandError, "ledger", err)
}
