package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Type)
		if ev.Kind != "" {
			fmt.Fprintf(&buf, " %s", ev.Kind)
		}
		if ev.TransactionID != "" {
			fmt.Fprintf(&buf, " %s", ev.TransactionID)
		}
		fmt.Fprintf(&buf, " -> %s\n", ev.Case)
	}
	return buf.String()
}

// assertEndorsed checks that exactly the listed requests were endorsed,
// each once, in any order.
func assertEndorsed(result *Result, a Assertion) error {
	got := slices.Clone(result.Endorsements())
	want := slices.Clone(a.Transactions)
	slices.Sort(got)
	slices.Sort(want)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEndorsed,
		Expected: fmt.Sprintf("endorsed %v", want),
		Actual:   fmt.Sprintf("endorsed %v", got),
		Trace:    result.Trace,
	}
}

// assertEndorseCount checks how many times one request was endorsed.
func assertEndorseCount(result *Result, a Assertion) error {
	count := 0
	for _, id := range result.Endorsements() {
		if id == a.Transaction {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEndorseCount,
		Expected: fmt.Sprintf("%d endorsement(s) of %s", a.Count, a.Transaction),
		Actual:   fmt.Sprintf("%d endorsement(s)", count),
		Trace:    result.Trace,
	}
}

// assertTransactionState checks a request's final state.
func assertTransactionState(result *Result, a Assertion) error {
	state, ok := result.Final.Transactions[a.Transaction]
	if ok && state == a.State {
		return nil
	}
	actual := "unknown transaction"
	if ok {
		actual = "state " + state
	}
	return &AssertionError{
		Type:     AssertTransactionState,
		Expected: fmt.Sprintf("%s in state %s", a.Transaction, a.State),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertRuleCount counts the rules of one kind matching where. Where
// values compare exactly; "" or "*" leaves a column unconstrained.
func assertRuleCount(ctx context.Context, st *store.Store, result *Result, a Assertion) error {
	kind, err := rules.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	filter := rules.Filter{Fields: map[string]string{}, Flags: map[string]bool{}}
	for col, v := range a.Where {
		if kind.IsFlag(col) {
			filter.Flags[col] = rules.ParseFlag(v)
		} else {
			filter.Fields[col] = v
		}
	}

	sess, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	total, _, err := sess.ListRules(ctx, kind, filter, store.Page{Num: 1, Size: 1})
	if err != nil {
		return err
	}
	if total == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRuleCount,
		Expected: fmt.Sprintf("%d %s rule(s) where %v", a.Count, kind, a.Where),
		Actual:   fmt.Sprintf("%d rule(s)", total),
		Trace:    result.Trace,
	}
}

// matchResult checks that the JSON form of actual contains expected
// (subset match). Both sides are normalized through JSON so YAML integers
// compare equal to JSON numbers.
func matchResult(actual any, expected map[string]any) error {
	got, err := normalize(actual)
	if err != nil {
		return fmt.Errorf("normalize result: %w", err)
	}
	want, err := normalize(expected)
	if err != nil {
		return fmt.Errorf("normalize expected result: %w", err)
	}
	if !subsetMatch(got, want) {
		return fmt.Errorf("result mismatch: expected subset %v, got %v", want, got)
	}
	return nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subsetMatch reports whether actual contains every key of expected,
// recursively for nested objects. Other values compare exactly.
func subsetMatch(actual, expected any) bool {
	expectedMap, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range expectedMap {
		got, exists := actualMap[key]
		if !exists || !subsetMatch(got, want) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, st *store.Store) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertEndorsed:
			err = assertEndorsed(result, a)
		case AssertEndorseCount:
			err = assertEndorseCount(result, a)
		case AssertTransactionState:
			err = assertTransactionState(result, a)
		case AssertRuleCount:
			if st == nil {
				err = fmt.Errorf("assertion[%d]: rule_count requires a store", i)
			} else {
				err = assertRuleCount(ctx, st, result, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
