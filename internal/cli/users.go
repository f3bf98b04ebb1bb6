package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sfconnect/internal/mapping"
)

// AttrsOptions holds flags for commands that take attributes.
type AttrsOptions struct {
	*RootOptions
	Attrs string
}

// UIDResult is the output of create and update.
type UIDResult struct {
	UID string `json:"uid"`
}

func (r UIDResult) String() string {
	return r.UID
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttrsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long: `Create a user from a JSON object of attributes. __NAME__ is the
username; __PASSWORD__, when present, is set after the user exists.

Example:
  sfconnect create -c org.yaml --attrs '{"__NAME__":"ann@example.com","Email":"ann@example.com"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			attrs, err := parseAttrs(opts.Attrs)
			if err != nil {
				return err
			}
			conn, err := connect(cmd, opts.RootOptions, out)
			if err != nil {
				return err
			}
			uid, err := conn.Create(cmd.Context(), attrs)
			if err != nil {
				return report(out, "create", err)
			}
			return out.Success(UIDResult{UID: uid})
		},
	}

	cmd.Flags().StringVar(&opts.Attrs, "attrs", "", "attributes as a JSON object")
	_ = cmd.MarkFlagRequired("attrs")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttrsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <uid>",
		Short: "Replace attributes of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			attrs, err := parseAttrs(opts.Attrs)
			if err != nil {
				return err
			}
			conn, err := connect(cmd, opts.RootOptions, out)
			if err != nil {
				return err
			}
			uid, err := conn.Update(cmd.Context(), args[0], attrs)
			if err != nil {
				return report(out, "update", err)
			}
			return out.Success(UIDResult{UID: uid})
		},
	}

	cmd.Flags().StringVar(&opts.Attrs, "attrs", "", "attributes as a JSON object")
	_ = cmd.MarkFlagRequired("attrs")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uid>",
		Short: "Deactivate a user",
		Long:  "Users cannot be removed remotely; delete sets the active attribute to false.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutputFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			conn, err := connect(cmd, rootOpts, out)
			if err != nil {
				return err
			}
			if err := conn.Delete(cmd.Context(), args[0]); err != nil {
				return report(out, "delete", err)
			}
			return out.Success(UIDResult{UID: args[0]})
		},
	}
}

func parseAttrs(raw string) (mapping.Attributes, error) {
	var attrs mapping.Attributes
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --attrs", err)
	}
	if len(attrs) == 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("--attrs must be a non-empty JSON object, got %q", raw))
	}
	return attrs, nil
}
