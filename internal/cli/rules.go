package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/endorser/internal/allowlist"
	"github.com/roach88/endorser/internal/rules"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List, add and delete allow-list rules",
		Long: `List, add and delete single allow-list rules.

Kinds: publish_did, schema, credential_definition, log_entry
(hyphenated forms such as publish-did are accepted).`,
	}

	cmd.AddCommand(newRulesListCommand(rootOpts))
	cmd.AddCommand(newRulesAddCommand(rootOpts))
	cmd.AddCommand(newRulesDeleteCommand(rootOpts))

	return cmd
}

// RulesListOptions holds flags for rules list.
type RulesListOptions struct {
	*RootOptions
	Filters  []string
	PageNum  int
	PageSize int
}

func newRulesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List rules of one kind",
		Long: `List one page of rules of one kind.

Filters compare columns exactly; a filter value of "" or "*" leaves the
column unconstrained.

Example:
  endorser rules list schema --where author_did=did:sov:abc
  endorser rules list log-entry --page 2 --page-size 50 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesList(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Filters, "where", nil, "column=value filter (repeatable)")
	cmd.Flags().IntVar(&opts.PageNum, "page", allowlist.DefaultPageNum, "page number (1-indexed)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", allowlist.DefaultPageSize, "rules per page")

	return cmd
}

func runRulesList(opts *RulesListOptions, kindArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	kind, err := rules.ParseKind(kindArg)
	if err != nil {
		return usageError(formatter, err)
	}
	filter, err := parseFilter(kind, opts.Filters)
	if err != nil {
		return usageError(formatter, err)
	}

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.close()

	listing, err := a.allowlist().List(cmd.Context(), kind, filter, allowlist.PageRequest{Num: opts.PageNum, Size: opts.PageSize})
	if err != nil {
		return formatter.Fail("list failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(listing)
	}
	fmt.Fprintf(formatter.Writer, "%s: %d of %d (page %d, size %d)\n",
		kind, listing.Count, listing.TotalCount, listing.PageNum, listing.PageSize)
	for _, r := range listing.Rules {
		fmt.Fprintf(formatter.Writer, "  %s  %s\n", r.RuleID(), describeRule(r))
	}
	return nil
}

// RulesAddOptions holds flags for rules add.
type RulesAddOptions struct {
	*RootOptions
	Values []string
}

func newRulesAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <kind>",
		Short: "Add one rule",
		Long: `Add one rule and reconcile pending requests against it.

Missing or empty match columns become the wildcard "*". Flag columns take
the bulk-input syntax: only "True" is true. Credential definition flags
that are left out default to true.

Example:
  endorser rules add publish-did --set registered_did=did:sov:abc
  endorser rules add credential-definition --set schema_issuer_did=did:a --set tag=default --set rev_reg_def=True`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Values, "set", nil, "column=value (repeatable)")

	return cmd
}

func runRulesAdd(opts *RulesAddOptions, kindArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	kind, err := rules.ParseKind(kindArg)
	if err != nil {
		return usageError(formatter, err)
	}
	values, err := parseAssignments(kind, opts.Values)
	if err != nil {
		return usageError(formatter, err)
	}
	rule, err := rules.BuildSingle(kind, values)
	if err != nil {
		return usageError(formatter, err)
	}

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.close()

	added, err := a.allowlist().Add(cmd.Context(), rule)
	if err != nil {
		return formatter.Fail("add failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(added)
	}
	fmt.Fprintf(formatter.Writer, "Added %s %s\n", kind, added.RuleID())
	return nil
}

// RulesDeleteOptions holds flags for rules delete.
type RulesDeleteOptions struct {
	*RootOptions
	ID  string
	DID string
}

func newRulesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesDeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <kind>",
		Short: "Delete one rule by identity",
		Long: `Delete one rule by identity and reconcile pending requests.

Deleting a rule that does not exist is not an error.

Example:
  endorser rules delete schema --id 6f1c...
  endorser rules delete publish-did --did did:sov:abc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesDelete(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "rule identity")
	cmd.Flags().StringVar(&opts.DID, "did", "", "registered DID (publish_did only)")

	return cmd
}

func runRulesDelete(opts *RulesDeleteOptions, kindArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	kind, err := rules.ParseKind(kindArg)
	if err != nil {
		return usageError(formatter, err)
	}

	var id uuid.UUID
	switch {
	case opts.ID != "" && opts.DID != "":
		return usageError(formatter, fmt.Errorf("--id and --did are mutually exclusive"))
	case opts.DID != "":
		if kind != rules.KindPublicDID {
			return usageError(formatter, fmt.Errorf("--did only applies to %s", rules.KindPublicDID))
		}
		id = rules.NewPublicDID(opts.DID, "").ID
	case opts.ID != "":
		if id, err = uuid.Parse(opts.ID); err != nil {
			return usageError(formatter, fmt.Errorf("--id: %w", err))
		}
	default:
		return usageError(formatter, fmt.Errorf("one of --id or --did is required"))
	}

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.close()

	deleted, err := a.allowlist().Delete(cmd.Context(), kind, id)
	if err != nil {
		return formatter.Fail("delete failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"id": id, "deleted": deleted})
	}
	if deleted {
		fmt.Fprintf(formatter.Writer, "Deleted %s %s\n", kind, id)
	} else {
		fmt.Fprintf(formatter.Writer, "No %s rule %s\n", kind, id)
	}
	return nil
}

// usageError reports bad arguments as a command error.
func usageError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
	return WrapExitError(ExitCommandError, "invalid arguments", err)
}

func splitAssignment(s string) (string, string, error) {
	col, val, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return "", "", fmt.Errorf("expected column=value, got %q", s)
	}
	return strings.TrimSpace(col), val, nil
}

func parseAssignments(kind rules.Kind, args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		col, val, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		if !kind.HasColumn(col) {
			return nil, fmt.Errorf("%s has no column %q", kind, col)
		}
		values[col] = val
	}
	return values, nil
}

func parseFilter(kind rules.Kind, args []string) (rules.Filter, error) {
	filter := rules.Filter{Fields: map[string]string{}, Flags: map[string]bool{}}
	for _, arg := range args {
		col, val, err := splitAssignment(arg)
		if err != nil {
			return filter, err
		}
		switch {
		case col == "id":
			id, err := uuid.Parse(val)
			if err != nil {
				return filter, fmt.Errorf("id: %w", err)
			}
			filter.ID = id
		case kind.IsFlag(col):
			filter.Flags[col] = rules.ParseFlag(val)
		case kind.HasColumn(col):
			filter.Fields[col] = val
		default:
			return filter, fmt.Errorf("%s has no column %q", kind, col)
		}
	}
	return filter, nil
}

// describeRule renders a rule's columns as sorted col=value pairs.
func describeRule(r rules.Rule) string {
	var parts []string
	for col, v := range r.Values() {
		if v != "" {
			parts = append(parts, col+"="+v)
		}
	}
	for col, v := range r.Flags() {
		parts = append(parts, fmt.Sprintf("%s=%t", col, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
