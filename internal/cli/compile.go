package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sfconnect/internal/config"
	"github.com/roach88/sfconnect/internal/filter"
	"github.com/roach88/sfconnect/internal/harness"
	"github.com/roach88/sfconnect/internal/soql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Attributes []string
	ObjectType string
	Columns    map[string]string
	Strict     bool
}

// CompileResult is the output of the compile command.
type CompileResult struct {
	Filter   string   `json:"filter"`
	Where    string   `json:"where"`
	Complete bool     `json:"complete"`
	Query    string   `json:"query"`
	Encoded  string   `json:"encoded"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <filter.yaml>",
		Short: "Compile a filter to a SOQL query",
		Long: `Compile a YAML filter to a SOQL WHERE clause and query without
contacting the remote service. Use "-" to read the filter from stdin.

Examples:
  sfconnect compile filter.yaml
  sfconnect compile filter.yaml -a Email,Age --column Age=INTEGER
  sfconnect compile filter.yaml --strict --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Attributes, "attributes", "a", nil, "attributes to select")
	cmd.Flags().StringVar(&opts.ObjectType, "object", config.DefaultObjectType, "object type to query")
	cmd.Flags().StringToStringVar(&opts.Columns, "column", nil, "declared column type, e.g. Age=INTEGER")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "drop an AND when either side cannot be translated")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions, path string) error {
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	f, err := readFilter(cmd, path)
	if err != nil {
		return err
	}

	for column, tag := range opts.Columns {
		if _, ok := soql.ParseType(tag); !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("column %s: unknown type %q", column, tag))
		}
	}

	validation := filter.Validate(f)
	if err := validation.Err(); err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	scenario := &harness.Scenario{
		Name:           "compile",
		ObjectType:     opts.ObjectType,
		Attributes:     opts.Attributes,
		Columns:        opts.Columns,
		StrictBooleans: opts.Strict,
		Filter:         filter.Document{Filter: f},
	}
	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "compile failed", err)
	}

	res := CompileResult{
		Filter:   filter.Format(f),
		Where:    result.Output.Where,
		Complete: result.Output.Complete,
		Query:    result.Output.Query,
		Encoded:  result.Output.Encoded,
		Warnings: validation.Warnings,
	}
	if out.JSON() {
		return out.Success(res)
	}

	w := out.Writer
	fmt.Fprintf(w, "filter:   %s\n", res.Filter)
	fmt.Fprintf(w, "where:    %s\n", res.Where)
	fmt.Fprintf(w, "complete: %t\n", res.Complete)
	fmt.Fprintf(w, "query:    %s\n", res.Query)
	fmt.Fprintf(w, "encoded:  %s\n", res.Encoded)
	for _, warning := range res.Warnings {
		out.VerboseLog("warning: %s", warning)
	}
	return nil
}

// readFilter parses the filter file at path, or stdin for "-".
func readFilter(cmd *cobra.Command, path string) (filter.Filter, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read filter", err)
	}

	f, err := filter.Parse(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse filter", err)
	}
	return f, nil
}
