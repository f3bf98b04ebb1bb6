package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/sfconnect/internal/auth"
	"github.com/roach88/sfconnect/internal/config"
	"github.com/roach88/sfconnect/internal/connector"
	"github.com/roach88/sfconnect/internal/gateway"
)

// newLogger logs to w at warn level, or debug with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.ConfigPath == "" {
		return config.Config{}, NewExitError(ExitCommandError, "--config is required")
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// connect loads the config and opens a connector. A refused login is an
// operation failure, a bad config a command error.
func connect(cmd *cobra.Command, opts *RootOptions, out *OutputFormatter) (*connector.Connector, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	conn, err := connector.New(cmd.Context(), cfg,
		connector.WithLogger(newLogger(opts, cmd.ErrOrStderr())))
	if err != nil {
		return nil, report(out, "connect", err)
	}
	out.VerboseLog("connected to %s", cfg.LoginURL)
	return conn, nil
}

// report writes err in the configured format and returns the ExitError the
// command should end with.
func report(out *OutputFormatter, op string, err error) error {
	code := errorCode(err)
	if outErr := out.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, op+" failed", err)
}

// errorCode picks the most specific code carried by err.
func errorCode(err error) string {
	var connErr *connector.Error
	if errors.As(err, &connErr) {
		return string(connErr.Code)
	}
	var refreshErr *auth.RefreshError
	if errors.As(err, &refreshErr) {
		return refreshErr.Code
	}
	var reqErr *gateway.RequestError
	if errors.As(err, &reqErr) {
		return string(reqErr.Code)
	}
	return "E_FAILED"
}
