package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/rules"
)

// Scenario defines an end-to-end endorsement scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ledger configures the documents the fake ledger serves.
	Ledger LedgerSetup `yaml:"ledger,omitempty"`

	// Rules are stored before the flow without triggering a pass.
	Rules []RuleSpec `yaml:"rules,omitempty"`

	// Pending requests are stored before the flow without triggering a pass.
	Pending []endorse.Transaction `yaml:"pending,omitempty"`

	// FailEndorse lists requests whose endorsement call fails.
	FailEndorse []string `yaml:"fail_endorse,omitempty"`

	// Flow is the sequence of operations under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate what was endorsed and what the store holds.
	Assertions []Assertion `yaml:"assertions"`
}

// LedgerSetup lists canned ledger documents.
type LedgerSetup struct {
	// Schemas maps a schema ref to the schema id the ledger reports.
	Schemas map[string]string `yaml:"schemas,omitempty"`
}

// RuleSpec names a rule by kind and column values, as bulk input would.
// Missing match columns are wildcards.
type RuleSpec struct {
	Kind   string            `yaml:"kind"`
	Values map[string]string `yaml:"values"`
}

// Build resolves the kind and constructs the rule.
func (r RuleSpec) Build() (rules.Rule, error) {
	kind, err := rules.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	for col := range r.Values {
		if !kind.HasColumn(col) {
			return nil, fmt.Errorf("%s has no column %q", kind, col)
		}
	}
	return rules.Build(kind, r.Values)
}

// FlowStep performs exactly one operation.
type FlowStep struct {
	// Add stores one rule through the allow-list service.
	Add *RuleSpec `yaml:"add,omitempty"`

	// Delete removes the rule with the identity of the given values.
	Delete *RuleSpec `yaml:"delete,omitempty"`

	// Import applies a bulk CSV batch.
	Import *ImportStep `yaml:"import,omitempty"`

	// Record stores a new request and runs a pass.
	Record *endorse.Transaction `yaml:"record,omitempty"`

	// Reconcile runs a pass.
	Reconcile bool `yaml:"reconcile,omitempty"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ImportStep is a bulk batch keyed by rule kind.
type ImportStep struct {
	// Mode is "replace" (default) or "append".
	Mode string `yaml:"mode,omitempty"`

	// Files maps a rule kind to CSV content.
	Files map[string]string `yaml:"files"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is one of ok, duplicate, invalid, error.
	Case string `yaml:"case"`

	// Result is a subset of the step's JSON result. If nil, only the case
	// is validated.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the outcome of the whole flow.
type Assertion struct {
	// Type is endorsed, endorse_count, transaction_state or rule_count.
	Type string `yaml:"type"`

	// Transactions is the exact endorsed set (endorsed).
	Transactions []string `yaml:"transactions,omitempty"`

	// Transaction names one request (endorse_count, transaction_state).
	Transaction string `yaml:"transaction,omitempty"`

	// State is the expected request state (transaction_state).
	State string `yaml:"state,omitempty"`

	// Kind is the rule table (rule_count).
	Kind string `yaml:"kind,omitempty"`

	// Where filters the rule table (rule_count).
	Where map[string]string `yaml:"where,omitempty"`

	// Count is the expected number (endorse_count, rule_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEndorsed         = "endorsed"
	AssertEndorseCount     = "endorse_count"
	AssertTransactionState = "transaction_state"
	AssertRuleCount        = "rule_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Rules {
		if _, err := r.Build(); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	for i, tx := range s.Pending {
		if tx.ID == "" {
			return fmt.Errorf("pending[%d]: transaction_id is required", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step FlowStep) error {
	actions := 0
	if step.Add != nil {
		actions++
	}
	if step.Delete != nil {
		actions++
	}
	if step.Import != nil {
		actions++
	}
	if step.Record != nil {
		actions++
	}
	if step.Reconcile {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("exactly one of add, delete, import, record or reconcile is required (got %d)", actions)
	}

	switch {
	case step.Add != nil:
		if _, err := step.Add.Build(); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	case step.Delete != nil:
		if _, err := step.Delete.Build(); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	case step.Import != nil:
		if step.Import.Mode != "" {
			if _, err := ingest.ParseMode(step.Import.Mode); err != nil {
				return fmt.Errorf("import: %w", err)
			}
		}
		for name := range step.Import.Files {
			if _, err := rules.ParseKind(name); err != nil {
				return fmt.Errorf("import: %w", err)
			}
		}
	case step.Record != nil:
		if step.Record.ID == "" {
			return fmt.Errorf("record: transaction_id is required")
		}
	}

	if step.Expect != nil {
		switch step.Expect.Case {
		case CaseOK, CaseDuplicate, CaseInvalid, CaseError:
		default:
			return fmt.Errorf("expect: unknown case %q", step.Expect.Case)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertEndorsed:
	case AssertEndorseCount:
		if a.Transaction == "" {
			return fmt.Errorf("transaction is required for %s", a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for %s", a.Type)
		}
	case AssertTransactionState:
		if a.Transaction == "" || a.State == "" {
			return fmt.Errorf("transaction and state are required for %s", a.Type)
		}
	case AssertRuleCount:
		kind, err := rules.ParseKind(a.Kind)
		if err != nil {
			return err
		}
		for col := range a.Where {
			if !kind.HasColumn(col) {
				return fmt.Errorf("%s has no column %q", kind, col)
			}
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for %s", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
