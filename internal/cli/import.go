package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwilcz/traceflow/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportSummary is the success payload of an import run.
type ImportSummary struct {
	Files    int      `json:"files"`
	Batches  int      `json:"batches"`
	BatchIDs []string `json:"batch_ids"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <export-file>...",
		Short: "Import recorder log exports into a trace database",
		Long: `Import one or more recorder log export files into a SQLite trace
database. Every batch is validated against the wire schema before it is
stored. Imports are idempotent: batches already present (same id) are
silently skipped, so re-running an import is safe.

Examples:
  traceflow import --db ./traces.db export.json
  traceflow import --db ./traces.db day1.json day2.json --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, args []string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, errs := LoadTraceLogs(args, LoadModeFailFast)
	if len(errs) > 0 {
		_ = out.Error(loadErrorCode(errs[0]), errs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "load failed", errs[0])
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ids, err := st.WriteLogBatches(context.Background(), loaded.Inputs)
	if err != nil {
		_ = out.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write batches", err)
	}

	summary := ImportSummary{
		Files:    loaded.FileCount,
		Batches:  len(ids),
		BatchIDs: ids,
	}

	if opts.Format == "json" {
		return out.Success(summary)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d batch(es) from %d file(s)\n", summary.Batches, summary.Files)
	out.VerboseLog("batch ids: %v", summary.BatchIDs)
	return nil
}

// loadErrorCode extracts the code of a loader error for output.
func loadErrorCode(err error) string {
	if le, ok := err.(*LoadError); ok {
		return le.Code
	}
	return ErrCodeGeneric
}
