package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/sfconnect/internal/filter"
	"github.com/roach88/sfconnect/internal/mapping"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Attributes []string
	Limit      int
	NoSchema   bool
}

// UserRecord is one search result in JSON output.
type UserRecord struct {
	UID        string         `json:"uid"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [filter.yaml]",
		Short: "Search users with a filter",
		Long: `Search users. Without a filter file every user is returned.

The object's describe metadata is loaded first so that column types are
known to the compiler; --no-schema skips that call.

Examples:
  sfconnect query -c org.yaml
  sfconnect query -c org.yaml filter.yaml -a Email,IsActive --limit 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Attributes, "attributes", "a", nil, "attributes to return")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many users (0 = no limit)")
	cmd.Flags().BoolVar(&opts.NoSchema, "no-schema", false, "skip loading describe metadata")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, args []string) error {
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var f filter.Filter
	if len(args) == 1 {
		var err error
		if f, err = readFilter(cmd, args[0]); err != nil {
			return err
		}
		if err := filter.Validate(f).Err(); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter", err)
		}
	}

	conn, err := connect(cmd, opts.RootOptions, out)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !opts.NoSchema {
		if _, err := conn.Schema(ctx); err != nil {
			return report(out, "describe", err)
		}
	}

	tr := conn.Translate(f)
	if tr.Where != nil {
		out.VerboseLog("where: %s (complete=%t)", tr.Where, tr.Complete)
	}

	var users []mapping.Object
	err = conn.Search(ctx, f, opts.Attributes, func(obj mapping.Object) bool {
		users = append(users, obj)
		return opts.Limit <= 0 || len(users) < opts.Limit
	})
	if err != nil {
		return report(out, "query", err)
	}

	if out.JSON() {
		records := make([]UserRecord, 0, len(users))
		for _, u := range users {
			records = append(records, UserRecord{UID: u.UID, Name: u.Name, Attributes: u.Attributes})
		}
		return out.Success(records)
	}

	headers, rows := userTable(users)
	out.Table(headers, rows)
	return nil
}

// userTable lays users out with the union of their attribute names as
// columns, sorted after UID and Name.
func userTable(users []mapping.Object) ([]string, [][]string) {
	seen := map[string]bool{}
	var keys []string
	for _, u := range users {
		for _, k := range u.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	headers := append([]string{"UID", "Name"}, keys...)
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		row := []string{u.UID, u.Name}
		for _, k := range keys {
			v, ok := u.Attributes[k]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(v))
		}
		rows = append(rows, row)
	}
	return headers, rows
}
