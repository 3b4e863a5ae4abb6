package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/rules"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Mode  string
	Files map[rules.Kind]*string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts, Files: map[rules.Kind]*string{}}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-load allow-lists from CSV files",
		Long: `Bulk-load allow-lists from CSV files, one file per rule kind.

The whole batch is applied in one transaction. In replace mode each
supplied file replaces its table, even one without rows,; in append mode existing rules
are kept and rules already present are counted, not rejected.

Example:
  endorser import --schema schemas.csv --credential-definition creddefs.csv
  endorser import --mode append --publish-did dids.csv --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", ingest.Replace.String(), "replace|append")
	for _, kind := range rules.Kinds {
		opts.Files[kind] = cmd.Flags().String(kind.Slug(), "", fmt.Sprintf("CSV file of %s rules", kind))
	}

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	mode, err := ingest.ParseMode(opts.Mode)
	if err != nil {
		return usageError(formatter, err)
	}

	var uploads []ingest.Upload
	for _, kind := range rules.Kinds {
		path := *opts.Files[kind]
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		formatter.VerboseLog("Reading %s rules from %s", kind, path)
		uploads = append(uploads, ingest.Upload{Kind: kind, FileName: path, Body: f})
	}

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.close()

	summaries, err := a.ingestor().Ingest(cmd.Context(), uploads, mode)
	if err != nil {
		return formatter.Fail("import failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(summaries)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d file(s) (%s)\n", len(summaries), mode)
	for _, kind := range ingest.Kinds(summaries) {
		s := summaries[kind.SummaryKey()]
		fmt.Fprintf(formatter.Writer, "  %s: %d inserted, %d already present, %d removed\n",
			s.FileName, s.Inserted, s.AlreadyPresent, s.Removed)
	}
	return nil
}
