package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	DryRun bool
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass",
		Long: `Endorse every pending request that the current allow-lists permit.

With --dry-run nothing is endorsed or written; each pending request is
reported with its classification and whether a rule matches it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report decisions without endorsing")

	return cmd
}

func runReconcile(opts *ReconcileOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.close()

	if opts.DryRun {
		return runDryRun(a, formatter, cmd)
	}

	report := a.engine.OnRuleSetChanged(cmd.Context())
	if formatter.JSON() {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "%d pending, %d endorsed, %d skipped, %d failed\n",
			report.Pending, len(report.Endorsed), report.Skipped, len(report.Failed))
		for _, id := range report.Endorsed {
			fmt.Fprintf(formatter.Writer, "  endorsed %s\n", id)
		}
		for _, id := range report.Failed {
			fmt.Fprintf(formatter.Writer, "  failed   %s\n", id)
		}
	}
	if !report.Committed || len(report.Failed) > 0 {
		return NewExitError(ExitFailure, "reconciliation incomplete")
	}
	return nil
}

func runDryRun(a *app, formatter *OutputFormatter, cmd *cobra.Command) error {
	sess, err := a.store.Begin(cmd.Context())
	if err != nil {
		return formatter.Fail("dry run failed", err)
	}
	defer sess.Rollback()

	decisions, err := a.engine.Evaluate(cmd.Context(), sess)
	if err != nil {
		return formatter.Fail("dry run failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(decisions)
	}
	fmt.Fprintf(formatter.Writer, "%d pending\n", len(decisions))
	for _, d := range decisions {
		verdict := "skip"
		if d.Matched {
			verdict = "endorse"
		}
		fmt.Fprintf(formatter.Writer, "  %-8s %s", verdict, d.TransactionID)
		if d.Kind != "" {
			fmt.Fprintf(formatter.Writer, " [%s]", d.Kind)
		}
		if d.Reason != "" {
			fmt.Fprintf(formatter.Writer, " %s", d.Reason)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}
