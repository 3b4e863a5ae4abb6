package queryir

import (
	"fmt"
	"regexp"
)

// identPattern restricts table and column names. Identifiers are the only
// part of a query that reaches SQL text, so they must never carry input.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks that every identifier in the query is a plain lowercase
// name and that paging values are non-negative.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	switch query := q.(type) {
	case Select:
		if err := validIdent("table", query.From); err != nil {
			return err
		}
		for _, col := range query.Columns {
			if err := validIdent("column", col); err != nil {
				return err
			}
		}
		if query.Limit < 0 || query.Offset < 0 {
			return fmt.Errorf("negative limit/offset (%d/%d)", query.Limit, query.Offset)
		}
		return validatePredicate(query.Filter)
	case Count:
		if err := validIdent("table", query.From); err != nil {
			return err
		}
		return validatePredicate(query.Filter)
	case Delete:
		if err := validIdent("table", query.From); err != nil {
			return err
		}
		return validatePredicate(query.Filter)
	case nil:
		return fmt.Errorf("nil query")
	default:
		return fmt.Errorf("unsupported query type: %T", q)
	}
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return validIdent("column", pred.Field)
	case *Equals:
		return validIdent("column", pred.Field)
	case EqualsOrWildcard:
		return validIdent("column", pred.Field)
	case *EqualsOrWildcard:
		return validIdent("column", pred.Field)
	case *And:
		return validatePredicate(*pred)
	case And:
		for _, child := range pred.Predicates {
			if err := validatePredicate(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func validIdent(what, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", what, name)
	}
	return nil
}
