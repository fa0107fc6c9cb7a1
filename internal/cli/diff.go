package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kwilcz/traceflow/internal/trace"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*ParseOptions
	From int
	To   int
}

// DiffResult is the payload of a diff run.
type DiffResult struct {
	CorrelationID string           `json:"correlation_id"`
	FromStep      int              `json:"from_step"`
	ToStep        int              `json:"to_step"`
	Claims        trace.ClaimsDiff `json:"claims"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{ParseOptions: &ParseOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "diff [export-file...]",
		Short: "Diff claims state between two steps",
		Long: `Reconstruct a trace and show how the claims state changed between
two steps, identified by their sequence numbers. The steps need not be
adjacent, so the whole journey can be inspected "time travel" style.

--from -1 diffs against the empty pre-journey state.

Examples:
  traceflow diff export.json --from 0 --to 2
  traceflow diff --db ./traces.db --correlation 8a5b... --from -1 --to 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "correlation id to load from the database")
	cmd.Flags().IntVar(&opts.From, "from", -1, "sequence number of the earlier step (-1 = empty state)")
	cmd.Flags().IntVar(&opts.To, "to", 0, "sequence number of the later step")

	return cmd
}

func runDiff(opts *DiffOptions, cmd *cobra.Command, args []string) error {
	inputs, err := gatherInputs(opts.ParseOptions, args)
	if err != nil {
		return err
	}

	result := trace.Parse(inputs)
	if !result.Success {
		return NewExitError(ExitFailure, "no reconstructable steps to diff")
	}

	oldSnapshot, err := snapshotAt(result, opts.From)
	if err != nil {
		return err
	}
	newSnapshot, err := snapshotAt(result, opts.To)
	if err != nil {
		return err
	}

	diff := DiffResult{
		CorrelationID: result.MainJourneyID,
		FromStep:      opts.From,
		ToStep:        opts.To,
		Claims:        trace.ComputeClaimsDiff(oldSnapshot, newSnapshot),
	}

	if opts.Format == "json" {
		out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return out.Success(diff)
	}
	return outputDiffText(cmd.OutOrStdout(), diff)
}

// snapshotAt returns the claims snapshot of a step by sequence number.
// -1 is the empty pre-journey state.
func snapshotAt(result trace.TraceParseResult, seq int) (map[string]string, error) {
	if seq == -1 {
		return map[string]string{}, nil
	}
	if seq < 0 || seq >= len(result.TraceSteps) {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("step %d out of range: trace has %d steps", seq, len(result.TraceSteps)))
	}
	return result.TraceSteps[seq].ClaimsSnapshot, nil
}

func outputDiffText(w io.Writer, diff DiffResult) error {
	fmt.Fprintf(w, "Claims diff: step %d -> step %d\n", diff.FromStep, diff.ToStep)

	if diff.Claims.Empty() {
		fmt.Fprintln(w, "  (no changes)")
		return nil
	}

	for _, k := range sortedKeys(diff.Claims.Added) {
		fmt.Fprintf(w, "  + %s = %s\n", k, diff.Claims.Added[k])
	}
	for _, k := range sortedChangeKeys(diff.Claims.Modified) {
		change := diff.Claims.Modified[k]
		fmt.Fprintf(w, "  ~ %s = %s (was %s)\n", k, change.NewValue, change.OldValue)
	}
	for _, k := range diff.Claims.Removed {
		fmt.Fprintf(w, "  - %s\n", k)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedChangeKeys(m map[string]trace.ValueChange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
