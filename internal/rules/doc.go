// Package rules defines the allow-list model used to decide auto-endorsement.
//
// There are four rule kinds, one per kind of ledger write:
//   - publish_did: an identifier an author may make public
//   - schema: a schema an author may publish
//   - credential_definition: a credential definition an author may publish
//   - log_entry: a webvh log entry the endorser may witness
//
// # Wildcards
//
// The sentinel "*" has two distinct meanings and the package keeps them apart:
//
//   - Stored in a rule field, it matches any query value (see Matches).
//   - Used as a list filter value, it means the field is unconstrained
//     (see Filter).
//
// Empty matchable fields are normalized to "*" when a rule is built, so an
// empty field and an explicit wildcard produce the same rule identity.
//
// # Identity
//
// Every rule has a deterministic identity: a name-based UUID (v5) over its
// matchable fields in declaration order. Details and boolean flags are
// attributes, not identity. Re-submitting a rule with the same matchable
// values yields the same ID, which the store uses to reject duplicates.
package rules
