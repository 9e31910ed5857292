package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txprop/internal/txn"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Cookie bool   // input is an export cookie
	Commit bool   // commit after import
	Abort  string // abort after import with this reason
}

// ImportResult is the output of the import command.
type ImportResult struct {
	TxID        string `json:"tx_id"`
	State       string `json:"state"`
	Description string `json:"description"`
	Outcome     string `json:"outcome,omitempty"` // "committed" | "aborted"
}

func (r ImportResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "tx_id:       %s\n", r.TxID)
	fmt.Fprintf(w, "state:       %s\n", r.State)
	fmt.Fprintf(w, "description: %s\n", r.Description)
	if r.Outcome != "" {
		fmt.Fprintf(w, "outcome:     %s\n", r.Outcome)
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <hex|->",
		Short: "Import a propagation token or export cookie",
		Long: `Reconstruct a transaction from a hex-encoded propagation token (default)
or export cookie, report its coordinator state, and optionally drive it to
an outcome.

Pass "-" to read the hex value from stdin.

Examples:
  txprop import 01000000...
  txprop export | tail -1 | txprop import -
  txprop import --cookie --commit 6d3a0f5e...
  txprop import --abort "operator cancel" 01000000...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Cookie, "cookie", false, "input is an export cookie")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "commit the imported transaction")
	cmd.Flags().StringVar(&opts.Abort, "abort", "", "abort the imported transaction with this reason")
	cmd.MarkFlagsMutuallyExclusive("commit", "abort")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, arg string) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	b, err := readHexInput(arg, cmd.InOrStdin())
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "read input", err))
	}

	n, err := openNode(ctx, opts.RootOptions)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "open coordinator", err))
	}
	defer func() {
		if err := n.Close(ctx); err != nil {
			opts.Logger.Warn("close coordinator", "error", err)
		}
	}()

	var tx *txn.Transaction
	if opts.Cookie {
		tx, err = n.facade.ImportFromCookie(ctx, b)
	} else {
		tx, err = n.facade.ImportFromPropagationToken(ctx, b)
	}
	if err != nil {
		return out.Fail(operationError("import", err))
	}

	native, err := n.facade.NativeTransaction(ctx, tx)
	if err != nil {
		return out.Fail(operationError("native transaction", err))
	}
	var info txn.TransactionInfo
	if err := native.GetTransactionInfo(ctx, &info); err != nil {
		return out.Fail(operationError("transaction info", err))
	}

	result := ImportResult{
		TxID:        tx.ID().String(),
		State:       tx.State().String(),
		Description: info.Description,
	}

	switch {
	case opts.Commit:
		if err := native.Commit(ctx, false, txn.CommitSync, 0); err != nil {
			return out.Fail(operationError("commit", err))
		}
		result.Outcome = "committed"
	case opts.Abort != "":
		if err := native.Abort(ctx, []byte(opts.Abort), false, false); err != nil {
			return out.Fail(operationError("abort", err))
		}
		result.Outcome = "aborted"
	}
	if result.Outcome != "" {
		if err := tx.Complete(); err != nil {
			return out.Fail(operationError("complete", err))
		}
		result.State = tx.State().String()
		out.VerboseLog("%s %s", result.Outcome, tx.ID())
	}

	return out.Success(result)
}
