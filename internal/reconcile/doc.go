// Package reconcile re-evaluates pending endorsement requests against the
// allow-list.
//
// A pass reads every request in state request_received with one query,
// classifies each, matches the criteria against the stored rules, endorses
// the matches and marks them endorsed, then commits once. The pass is best
// effort:
//
//   - if the initial read fails the pass is abandoned without a commit and
//     the failure is only logged
//   - a failure while handling one request (match query, ledger call, state
//     update) is logged and that request is skipped; the others proceed and
//     the pass still commits
//
// OnRuleSetChanged is the hook every allow-list mutation calls after its own
// commit.
package reconcile
