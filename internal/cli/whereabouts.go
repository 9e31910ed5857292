package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txprop/internal/coordinator"
)

// WhereaboutsResult is the output of the whereabouts command.
type WhereaboutsResult struct {
	Address string `json:"address"`
	Bytes   int    `json:"bytes"`
	Hex     string `json:"hex"`
}

func (r WhereaboutsResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "address: %s (%d bytes)\n", r.Address, r.Bytes)
	fmt.Fprintln(w, r.Hex)
}

// NewWhereaboutsCommand creates the whereabouts command.
func NewWhereaboutsCommand(rootOpts *RootOptions) *cobra.Command {
	var decode bool

	cmd := &cobra.Command{
		Use:   "whereabouts [address|hex]",
		Short: "Encode or decode coordinator whereabouts",
		Long: `Print the whereabouts a coordinator at address advertises. With no
argument the configured advertised address is used. With --decode the
argument is hex-encoded whereabouts to read back.

Examples:
  txprop whereabouts
  txprop whereabouts node-b:7400
  txprop whereabouts --decode 545857310100...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if decode {
				if len(args) == 0 {
					return out.Fail(NewExitError(ExitCommandError, "--decode needs a hex argument"))
				}
				b, err := readHexInput(args[0], cmd.InOrStdin())
				if err != nil {
					return out.Fail(WrapExitError(ExitCommandError, "read input", err))
				}
				addr, n, err := coordinator.DecodeWhereabouts(b)
				if err != nil {
					return out.Fail(operationError("decode whereabouts", err))
				}
				return out.Success(WhereaboutsResult{Address: addr, Bytes: n, Hex: hex.EncodeToString(b[:n])})
			}

			addr := rootOpts.Config.AdvertisedAddress()
			if len(args) == 1 {
				addr = args[0]
			}
			b := coordinator.EncodeWhereabouts(addr)
			return out.Success(WhereaboutsResult{Address: addr, Bytes: len(b), Hex: hex.EncodeToString(b)})
		},
	}

	cmd.Flags().BoolVar(&decode, "decode", false, "decode hex whereabouts instead of encoding an address")
	return cmd
}
