package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sfconnect/internal/sandbox"
)

// SandboxOptions holds flags for the sandbox command.
type SandboxOptions struct {
	*RootOptions
	Addr      string
	DB        string
	BatchSize int
	Creds     sandbox.Credentials
}

// NewSandboxCommand creates the sandbox command.
func NewSandboxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SandboxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve a local SQLite-backed emulation of the REST API",
		Long: `Serve the token, query, sobjects and describe endpoints from a local
SQLite database, for trying the other commands without a real org.

Point a config at it with:
  login_url: http://127.0.0.1:8085/services/oauth2/token

The password the token endpoint accepts is the configured password with
any security token appended.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandbox(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8085", "listen address")
	cmd.Flags().StringVar(&opts.DB, "db", "sandbox.db", "SQLite database path")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", sandbox.DefaultBatchSize, "records per query page")
	cmd.Flags().StringVar(&opts.Creds.ClientID, "client-id", "sandbox", "accepted client id")
	cmd.Flags().StringVar(&opts.Creds.ClientSecret, "client-secret", "sandbox", "accepted client secret")
	cmd.Flags().StringVar(&opts.Creds.Username, "username", "admin@sandbox.local", "accepted username")
	cmd.Flags().StringVar(&opts.Creds.Password, "password", "sandbox", "accepted password")

	return cmd
}

func runSandbox(cmd *cobra.Command, opts *SandboxOptions) error {
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	store, err := sandbox.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open sandbox database", err)
	}
	defer store.Close()

	box := sandbox.NewServer(store, opts.Creds,
		sandbox.WithBatchSize(opts.BatchSize),
		sandbox.WithLogger(logger))

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := &http.Server{Handler: box.Handler(), ReadHeaderTimeout: 10 * time.Second}

	if !out.JSON() {
		fmt.Fprintf(out.Writer, "sandbox listening on http://%s\n", ln.Addr())
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-cmd.Context().Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown failed", err)
		}
		<-errc
		logger.Info("sandbox stopped")
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "sandbox server failed", err)
	}
}
