// Package harness runs end-to-end endorsement scenarios.
//
// A scenario seeds rules and pending requests into a fresh in-memory store,
// drives the allow-list service, the bulk ingestor and the reconciliation
// engine through a flow of steps, and then checks assertions against what
// was endorsed and what the store holds.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: schema_endorsed_after_import
//	description: "Importing a schema rule endorses the waiting request"
//	ledger:
//	  schemas:
//	    "12345": "did:sov:issuer:2:degree:1.0"
//	rules:
//	  - kind: publish_did
//	    values: { registered_did: "did:sov:abc" }
//	pending:
//	  - transaction_id: tx-1
//	    transaction_type: "101"
//	    author_did: did:sov:author
//	    transaction: { data: { name: degree, version: "1.0" } }
//	flow:
//	  - import:
//	      mode: replace
//	      files:
//	        schema: |
//	          author_did,schema_name,version
//	          did:sov:author,degree,1.0
//	    expect:
//	      case: ok
//	assertions:
//	  - type: endorsed
//	    transactions: [tx-1]
//
// Each flow step performs exactly one of add, delete, import, record or
// reconcile. A step's expect clause names the outcome case (ok, duplicate,
// invalid or error) and optionally a subset of its JSON result.
//
// # Assertion Types
//
//   - endorsed: exactly these requests were endorsed during the flow
//   - endorse_count: a request was endorsed exactly N times
//   - transaction_state: a request ends in the given state
//   - rule_count: a table holds N rules, optionally filtered by where
//
// # Determinism
//
// Rule identities are content-derived and pending requests are processed
// in transaction id order, so the trace of a scenario is identical across
// runs and can be compared against a golden snapshot.
package harness
