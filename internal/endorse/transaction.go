// Package endorse defines the pending endorsement request that the
// allow-list engine decides on, and the collaborator that endorses it.
package endorse

import "context"

// Type is the ledger transaction type code carried by a request.
type Type string

const (
	TypeNym     Type = "1"
	TypeAttrib  Type = "100"
	TypeSchema  Type = "101"
	TypeCredDef Type = "102"
	// Revocation registry writes. Known to the ledger, never auto-endorsed
	// on their own.
	TypeRevRegDef   Type = "113"
	TypeRevRegEntry Type = "114"
)

// State is the lifecycle position of a request. Anything other than
// StateRequestReceived is terminal.
type State string

const (
	StateRequestReceived State = "request_received"
	StateEndorsed        State = "endorsed"
	StateRejected        State = "rejected"
	StateError           State = "error"
)

// GoalRegisterPublicDID is the author goal code for a request asking to make
// its DID public.
const GoalRegisterPublicDID = "aries.transaction.register_public_did"

// Transaction is one pending endorsement request.
//
// Payload and Request are decoded JSON objects; only the keys the classifier
// reads are interpreted.
type Transaction struct {
	ID             string         `json:"transaction_id" yaml:"transaction_id"`
	ConnectionID   string         `json:"connection_id" yaml:"connection_id"`
	Type           Type           `json:"transaction_type" yaml:"transaction_type"`
	State          State          `json:"state" yaml:"state"`
	AuthorDID      string         `json:"author_did" yaml:"author_did"`
	AuthorGoalCode string         `json:"author_goal_code,omitempty" yaml:"author_goal_code"`
	Payload        map[string]any `json:"transaction,omitempty" yaml:"transaction"`
	Request        map[string]any `json:"transaction_request,omitempty" yaml:"transaction_request"`
}

// Known reports whether s is one of the lifecycle states above.
func (s State) Known() bool {
	switch s {
	case StateRequestReceived, StateEndorsed, StateRejected, StateError:
		return true
	}
	return false
}

// Pending reports whether the request still awaits a decision.
func (t Transaction) Pending() bool {
	return t.State == StateRequestReceived
}

// Endorser co-signs a pending request on the ledger.
type Endorser interface {
	Endorse(ctx context.Context, tx Transaction) error
}

// EndorserFunc adapts a function to Endorser.
type EndorserFunc func(ctx context.Context, tx Transaction) error

// Endorse calls f(ctx, tx).
func (f EndorserFunc) Endorse(ctx context.Context, tx Transaction) error {
	return f(ctx, tx)
}
