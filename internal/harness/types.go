package harness

// Trace event types besides the flow step names.
const (
	EventEndorse = "endorse"
)

// Outcome cases of a step or an endorsement.
const (
	CaseOK        = "ok"
	CaseDuplicate = "duplicate"
	CaseInvalid   = "invalid"
	CaseError     = "error"
	CaseFailed    = "failed"
)

// TraceEvent is one step or endorsement, in execution order.
type TraceEvent struct {
	Seq           int    `json:"seq"`
	Type          string `json:"type"` // step name or "endorse"
	Kind          string `json:"kind,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Case          string `json:"case"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every step and endorsement in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the store content after the flow.
	Final FinalState `json:"final"`
}

// FinalState summarizes the store after the flow.
type FinalState struct {
	// Transactions maps each request id to its state.
	Transactions map[string]string `json:"transactions"`
	// Rules maps each rule kind to the number of stored rules.
	Rules map[string]int `json:"rules"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final: FinalState{
			Transactions: map[string]string{},
			Rules:        map[string]int{},
		},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}

// Endorsements returns the ids of successful endorsements in order.
func (r *Result) Endorsements() []string {
	var ids []string
	for _, ev := range r.Trace {
		if ev.Type == EventEndorse && ev.Case == CaseOK {
			ids = append(ids, ev.TransactionID)
		}
	}
	return ids
}
