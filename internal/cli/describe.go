package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the fields of the object type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutputFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			conn, err := connect(cmd, rootOpts, out)
			if err != nil {
				return err
			}
			info, err := conn.Schema(cmd.Context())
			if err != nil {
				return report(out, "describe", err)
			}
			if out.JSON() {
				return out.Success(info)
			}

			rows := make([][]string, 0, len(info.Fields))
			for _, f := range info.Fields {
				rows = append(rows, []string{
					f.Name,
					f.RemoteType,
					f.Type.Name(),
					strconv.FormatBool(f.Createable),
					strconv.FormatBool(f.Updateable),
					strconv.FormatBool(f.Required),
				})
			}
			out.VerboseLog("object %s (%s)", info.Name, info.Class)
			out.Table([]string{"Field", "Remote", "Type", "Createable", "Updateable", "Required"}, rows)
			return nil
		},
	}
}
