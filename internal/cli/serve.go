package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/txprop/internal/admin"
	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/coordinator/grpccoord"
	"github.com/roach88/txprop/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ShutdownTimeout time.Duration

	// ready is called once both listeners are bound. Tests use it to learn
	// the ports chosen for ":0" addresses.
	ready func(grpcAddr, adminAddr net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference coordinator",
		Long: `Run the reference coordinator over the local ledger.

The Coordinator gRPC service and gRPC health listen on coordinator.listen.
The admin HTTP API listens on admin.listen. SIGINT or SIGTERM drains both.

Examples:
  txprop serve
  txprop serve --config node-a.yaml
  txprop serve --ledger /var/lib/txprop/node.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg := opts.Config
	logger := opts.Logger
	if cfg.Coordinator.Remote != "" {
		return NewExitError(ExitCommandError, "serve runs a local coordinator: unset coordinator.remote")
	}

	st, err := store.Open(cfg.Ledger.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open ledger", err)
	}
	defer st.Close()

	coord, err := coordinator.New(ctx, st,
		coordinator.WithName(cfg.Coordinator.Name),
		coordinator.WithAddress(cfg.AdvertisedAddress()),
		coordinator.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "start coordinator", err)
	}

	srv := grpccoord.NewServer(coord, logger)
	grpcServer, healthServer := grpccoord.NewGRPCServer(srv)
	grpcLis, err := net.Listen("tcp", cfg.Coordinator.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "listen coordinator", err)
	}
	defer grpcLis.Close()

	httpServer := &http.Server{
		Handler:           admin.NewRouter(admin.NewHandler(st, srv, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	adminLis, err := net.Listen("tcp", cfg.Admin.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "listen admin", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Serve(adminLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := grpcServer.Serve(grpcLis); err != nil {
			errCh <- err
		}
	}()

	logger.Info("coordinator serving",
		"name", cfg.Coordinator.Name,
		"kind", coord.Kind(),
		"grpc", grpcLis.Addr().String(),
		"admin", adminLis.Addr().String(),
		"advertised", cfg.AdvertisedAddress(),
	)
	if opts.ready != nil {
		opts.ready(grpcLis.Addr(), adminLis.Addr())
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.ErrorContext(ctx, "runtime failure", "error", runErr)
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()

	if runErr != nil {
		return WrapExitError(ExitCommandError, "serve", runErr)
	}
	return nil
}
