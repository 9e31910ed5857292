package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/token"
)

// InspectOptions holds flags for the inspect commands.
type InspectOptions struct {
	*RootOptions
	WhereaboutsLen int // -1 detects self-describing whereabouts
}

// PayloadView describes a coordinator payload. Canonical JSON payloads are
// shown as text, anything else as hex.
type PayloadView struct {
	Bytes int    `json:"bytes"`
	JSON  string `json:"json,omitempty"`
	Hex   string `json:"hex,omitempty"`
}

// TokenView is the decoded form of a propagation token.
type TokenView struct {
	Version string      `json:"version"`
	TxID    string      `json:"tx_id"`
	Payload PayloadView `json:"payload"`
}

// CookieView is the decoded form of an export cookie.
type CookieView struct {
	Signature   string      `json:"signature"`
	TxID        string      `json:"tx_id"`
	Whereabouts string      `json:"whereabouts,omitempty"`
	Address     string      `json:"address,omitempty"`
	Payload     PayloadView `json:"payload"`
}

func (v TokenView) renderText(w io.Writer) {
	fmt.Fprintf(w, "version:     %s\n", v.Version)
	fmt.Fprintf(w, "tx_id:       %s\n", v.TxID)
	v.Payload.renderText(w)
}

func (v CookieView) renderText(w io.Writer) {
	fmt.Fprintf(w, "signature:   %s\n", v.Signature)
	fmt.Fprintf(w, "tx_id:       %s\n", v.TxID)
	if v.Whereabouts != "" {
		fmt.Fprintf(w, "whereabouts: %s\n", v.Whereabouts)
	}
	if v.Address != "" {
		fmt.Fprintf(w, "address:     %s\n", v.Address)
	}
	v.Payload.renderText(w)
}

func (p PayloadView) renderText(w io.Writer) {
	fmt.Fprintf(w, "payload:     %d bytes\n", p.Bytes)
	switch {
	case p.JSON != "":
		fmt.Fprintf(w, "  %s\n", p.JSON)
	case p.Hex != "":
		fmt.Fprintf(w, "  %s\n", p.Hex)
	}
}

// NewInspectCommand creates the inspect command group.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Decode tokens and cookies without a coordinator",
		Long: `Decode a hex-encoded propagation token or export cookie offline.

Examples:
  txprop inspect token 01000000...
  txprop inspect cookie 6d3a0f5e...
  txprop inspect cookie --whereabouts-len 0 6d3a0f5e...`,
	}

	tokenCmd := &cobra.Command{
		Use:           "token <hex|->",
		Short:         "Decode a propagation token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectToken(cmd, opts, args[0])
		},
	}

	cookieCmd := &cobra.Command{
		Use:           "cookie <hex|->",
		Short:         "Decode an export cookie",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectCookie(cmd, opts, args[0])
		},
	}
	cookieCmd.Flags().IntVar(&opts.WhereaboutsLen, "whereabouts-len", -1,
		"whereabouts length in bytes (-1 detects the coordinator's self-describing form)")

	cmd.AddCommand(tokenCmd, cookieCmd)
	return cmd
}

func runInspectToken(cmd *cobra.Command, opts *InspectOptions, arg string) error {
	out := opts.formatter(cmd)
	b, err := readHexInput(arg, cmd.InOrStdin())
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "read input", err))
	}
	pt, err := token.DecodeToken(b)
	if err != nil {
		return out.Fail(operationError("inspect token", err))
	}
	return out.Success(TokenView{
		Version: pt.Version.String(),
		TxID:    pt.ID.String(),
		Payload: viewPayload(pt.Payload),
	})
}

func runInspectCookie(cmd *cobra.Command, opts *InspectOptions, arg string) error {
	out := opts.formatter(cmd)
	b, err := readHexInput(arg, cmd.InOrStdin())
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "read input", err))
	}

	whereLen := opts.WhereaboutsLen
	if whereLen < 0 {
		whereLen = 0
		if len(b) > token.CookieMinLen {
			if n, err := coordinator.WhereaboutsLen(b[token.CookieMinLen:]); err == nil {
				whereLen = n
			}
		}
	}

	c, err := token.DecodeCookie(b, whereLen)
	if err != nil {
		return out.Fail(operationError("inspect cookie", err))
	}
	view := CookieView{
		Signature: c.Signature.String(),
		TxID:      c.ID.String(),
		Payload:   viewPayload(c.Payload),
	}
	if len(c.Whereabouts) > 0 {
		view.Whereabouts = hex.EncodeToString(c.Whereabouts)
		if addr, _, err := coordinator.DecodeWhereabouts(c.Whereabouts); err == nil {
			view.Address = addr
		}
	}
	return out.Success(view)
}

func viewPayload(p []byte) PayloadView {
	v := PayloadView{Bytes: len(p)}
	if len(p) == 0 {
		return v
	}
	if obj, err := ir.ParseObject(p); err == nil {
		if canon, err := ir.MarshalCanonical(obj); err == nil && bytes.Equal(canon, p) {
			v.JSON = string(p)
			return v
		}
	}
	v.Hex = hex.EncodeToString(p)
	return v
}
