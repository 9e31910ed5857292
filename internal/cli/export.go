package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txprop/internal/coordinator"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Cookie bool   // export a cookie instead of a propagation token
	To     string // receiving coordinator address for cookies
}

// ExportResult is the output of the export command.
type ExportResult struct {
	TxID  string `json:"tx_id"`
	Kind  string `json:"kind"` // "token" | "cookie"
	Bytes int    `json:"bytes"`
	Hex   string `json:"hex"`
}

func (r ExportResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "tx_id: %s\n", r.TxID)
	fmt.Fprintf(w, "kind:  %s (%d bytes)\n", r.Kind, r.Bytes)
	fmt.Fprintln(w, r.Hex)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Begin a transaction and export it",
		Long: `Begin a new transaction, promote it through the configured coordinator,
and print it as a propagation token (default) or an export cookie.

The cookie is addressed to the coordinator at --to, or to the configured
coordinator when --to is empty.

Examples:
  txprop export
  txprop export --cookie --to node-b:7400
  txprop export --remote 127.0.0.1:7400 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Cookie, "cookie", false, "export an export cookie instead of a propagation token")
	cmd.Flags().StringVar(&opts.To, "to", "", "address of the coordinator receiving the cookie")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	n, err := openNode(ctx, opts.RootOptions)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "open coordinator", err))
	}
	defer func() {
		if err := n.Close(ctx); err != nil {
			opts.Logger.Warn("close coordinator", "error", err)
		}
	}()

	tx := n.facade.Begin()
	var b []byte
	kind := "token"
	if opts.Cookie {
		kind = "cookie"
		var where []byte
		if opts.To != "" {
			where = coordinator.EncodeWhereabouts(opts.To)
		} else if where, err = n.facade.Whereabouts(ctx); err != nil {
			return out.Fail(operationError("whereabouts", err))
		}
		b, err = n.facade.Export(ctx, tx, where)
	} else {
		b, err = n.facade.ExportPropagationToken(ctx, tx)
	}
	if err != nil {
		return out.Fail(operationError("export "+kind, err))
	}
	out.VerboseLog("exported %s %s", kind, tx.ID())

	return out.Success(ExportResult{
		TxID:  tx.ID().String(),
		Kind:  kind,
		Bytes: len(b),
		Hex:   hex.EncodeToString(b),
	})
}
