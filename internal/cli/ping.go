package cli

import (
	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Log in and check the service path answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutputFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			conn, err := connect(cmd, rootOpts, out)
			if err != nil {
				return err
			}
			if err := conn.Test(cmd.Context()); err != nil {
				return report(out, "ping", err)
			}
			if out.JSON() {
				return out.Success(map[string]string{"status": "reachable"})
			}
			return out.Success(pass("reachable"))
		},
	}
}
