package rules

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Filter constrains a rule listing.
//
// Unlike stored rule fields, a filter value of "" or "*" means the column is
// not constrained at all; it does not select rows holding the wildcard.
type Filter struct {
	// ID selects a single rule when not uuid.Nil.
	ID uuid.UUID
	// Fields holds text column constraints.
	Fields map[string]string
	// Flags holds boolean column constraints.
	Flags map[string]bool
}

// Omitted reports whether a filter value leaves its column unconstrained.
func Omitted(v string) bool {
	return v == "" || v == Wildcard
}

// Validate rejects columns that do not belong to kind.
func (f Filter) Validate(kind Kind) error {
	text := kind.TextColumns()
	for col := range f.Fields {
		if !slices.Contains(text, col) {
			return fmt.Errorf("filter: %s has no text column %q", kind, col)
		}
	}
	for col := range f.Flags {
		if !kind.IsFlag(col) {
			return fmt.Errorf("filter: %s has no flag column %q", kind, col)
		}
	}
	return nil
}
