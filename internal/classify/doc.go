// Package classify turns a pending endorsement request into the criteria an
// allow-list rule is matched against.
//
// Classification never fails with an error. A request that is malformed,
// of an unsupported type, or whose schema reference cannot be resolved
// yields NotEndorsable, which callers treat exactly like "no rule matched".
//
// Dispatch order:
//  1. author goal code aries.transaction.register_public_did: the DID in the
//     transaction request
//  2. transaction type:
//     - NYM, ATTRIB: payload "dest"
//     - SCHEMA: author DID, payload data.name and data.version
//     - CRED_DEF: author DID, payload "tag", and the schema referenced by
//     payload "ref", resolved through the ledger
//     - anything else: NotEndorsable
package classify
