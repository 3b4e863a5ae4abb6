// Package testutil provides test doubles for the ledger collaborators.
package testutil
