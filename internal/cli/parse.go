package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kwilcz/traceflow/internal/clip"
	"github.com/kwilcz/traceflow/internal/store"
	"github.com/kwilcz/traceflow/internal/trace"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Database    string
	Correlation string
	Node        string // optional - filter to one graph node
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [export-file...]",
		Short: "Reconstruct a journey trace",
		Long: `Reconstruct the ordered step timeline of a policy run, either from
export files given as arguments or from batches stored under a
correlation id in a trace database.

The output includes:
- Steps: the ordered timeline with technical profiles and results
- Execution map: per-node visit counts and merged status
- Final state: the claims and statebag after the last step

Examples:
  traceflow parse export.json
  traceflow parse --db ./traces.db --correlation 8a5b2f7e-...
  traceflow parse export.json --node B2C_1A_signin-Step2 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "correlation id to load from the database")
	cmd.Flags().StringVar(&opts.Node, "node", "", "filter steps to one graph node id")

	return cmd
}

func runParse(opts *ParseOptions, cmd *cobra.Command, args []string) error {
	inputs, err := gatherInputs(opts, args)
	if err != nil {
		return err
	}

	result := trace.Parse(inputs)

	if opts.Node != "" {
		result.TraceSteps = trace.TraceStepsForNode(result, opts.Node)
	}

	if opts.Format == "json" {
		return outputParseJSON(cmd, result)
	}
	return outputParseText(cmd.OutOrStdout(), result, opts.Verbose)
}

// gatherInputs resolves the batch source: export files given as
// arguments, or a stored correlation. Exactly one source must be used.
func gatherInputs(opts *ParseOptions, args []string) ([]clip.TraceLogInput, error) {
	fromFiles := len(args) > 0
	fromStore := opts.Correlation != ""

	switch {
	case fromFiles && fromStore:
		return nil, NewExitError(ExitCommandError, "give either export files or --correlation, not both")
	case fromFiles:
		loaded, errs := LoadTraceLogs(args, LoadModeFailFast)
		if len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, "load failed", errs[0])
		}
		return loaded.Inputs, nil
	case fromStore:
		if opts.Database == "" {
			return nil, NewExitError(ExitCommandError, "--correlation requires --db")
		}
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		inputs, err := st.ReadCorrelation(context.Background(), opts.Correlation)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read correlation", err)
		}
		return inputs, nil
	default:
		return nil, NewExitError(ExitCommandError, "no input: give export files or --db with --correlation")
	}
}

// outputParseJSON outputs the parse result as JSON.
func outputParseJSON(cmd *cobra.Command, result trace.TraceParseResult) error {
	response := CLIResponse{
		Status:        "ok",
		Data:          result,
		CorrelationID: result.MainJourneyID,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputParseText outputs the parse result as a human-readable timeline.
func outputParseText(w io.Writer, result trace.TraceParseResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Journey: %s\n", result.MainJourneyID)
	fmt.Fprintf(w, "Status: %s\n", parseStatus(result))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	if len(result.TraceSteps) == 0 {
		fmt.Fprintln(w, "  (no steps)")
	} else {
		for _, step := range result.TraceSteps {
			formatStep(w, step, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Execution Map ===")
	if len(result.ExecutionMap) == 0 {
		fmt.Fprintln(w, "  (no nodes)")
	} else {
		for _, nodeID := range sortedNodeIDs(result.ExecutionMap) {
			node := result.ExecutionMap[nodeID]
			fmt.Fprintf(w, "  %s  %s  visits=%d  steps=%s\n",
				nodeID, node.Status, node.VisitCount, formatIndices(node.StepIndices))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Final State ===")
	fmt.Fprintf(w, "  Claims: %s\n", formatFlatMap(finalClaims(result)))
	if verbose {
		fmt.Fprintf(w, "  Statebag: %s\n", formatFlatMap(result.FinalStatebag))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Diagnostics ===")
		for _, diag := range result.Errors {
			fmt.Fprintf(w, "  %s\n", diag)
		}
	}

	return nil
}

// formatStep formats a single timeline step for text output.
func formatStep(w io.Writer, step trace.TraceStep, verbose bool) {
	marker := ""
	switch {
	case step.IsFinalStep:
		marker = " (final)"
	case step.IsInteractiveStep:
		marker = " (interactive)"
	}

	fmt.Fprintf(w, "  [%d] Step %d  %s%s\n", step.SequenceNumber, step.StepOrder, step.Result, marker)

	if len(step.TechnicalProfiles) > 0 {
		fmt.Fprintf(w, "       Profiles: %s\n", strings.Join(step.TechnicalProfiles, ", "))
	}
	if len(step.SelectableOptions) > 0 {
		fmt.Fprintf(w, "       Options: %s\n", strings.Join(step.SelectableOptions, ", "))
	}
	if step.SelectedOption != "" {
		fmt.Fprintf(w, "       Selected: %s\n", step.SelectedOption)
	}
	if len(step.ClaimsTransformations) > 0 {
		fmt.Fprintf(w, "       Transformations: %s\n", strings.Join(step.ClaimsTransformations, ", "))
	}
	if step.Result == trace.ResultError {
		fmt.Fprintf(w, "       Error: %s\n", step.ErrorMessage)
	}

	if verbose {
		fmt.Fprintf(w, "       Node: %s  Journey: %s (depth %d)\n",
			step.GraphNodeID, step.JourneyContextID, step.JourneyDepth)
		fmt.Fprintf(w, "       Claims: %s\n", formatFlatMap(step.ClaimsSnapshot))
	}
}

// formatFlatMap formats a string map for display with sorted keys.
func formatFlatMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func sortedNodeIDs(m map[string]trace.NodeExecution) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func finalClaims(result trace.TraceParseResult) map[string]string {
	if len(result.TraceSteps) == 0 {
		return nil
	}
	return result.TraceSteps[len(result.TraceSteps)-1].ClaimsSnapshot
}

func parseStatus(result trace.TraceParseResult) string {
	if result.Success {
		return fmt.Sprintf("Reconstructed (%d steps)", len(result.TraceSteps))
	}
	return "Empty (no reconstructable steps)"
}
