// Package store provides SQLite-backed storage for the allow-list and for
// pending endorsement requests.
//
// # Tables
//
//   - allowed_public_did, allowed_schema, allowed_cred_def, allowed_log_entry:
//     one table per rule kind, keyed by the rule's deterministic UUIDv5
//   - endorse_request: pending requests with their decoded payloads as JSON text
//
// # Sessions
//
// All access goes through a Session, a thin wrapper over one *sql.Tx. A
// request (single-rule mutation, bulk ingest, reconciliation pass) opens one
// session and either commits it or rolls it back; nothing is visible to other
// sessions before commit. The pool holds a single connection, so an open
// session blocks the next Begin until it finishes.
//
// # Queries
//
// Rule reads and deletes are expressed in internal/queryir and compiled by
// internal/querysql. Values are always bound as parameters. Listings are
// ordered by id ASC COLLATE BINARY so pages are stable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
