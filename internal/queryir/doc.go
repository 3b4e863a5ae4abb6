// Package queryir is a small query intermediate representation for the
// allow-list store.
//
// The store never concatenates user values into SQL. It builds a Query out
// of the node types here and hands it to internal/querysql, which emits
// parameterized SQL:
//
//	[store] → [Query IR] → [SQL compiler] → database/sql
//
// Query nodes:
//   - Select(from, columns, filter, limit, offset)
//   - Count(from, filter)
//   - Delete(from, filter)
//
// Predicate nodes:
//   - Equals: field = value (list filters)
//   - EqualsOrWildcard: field = value, or field holds the wildcard (rule matching)
//   - And: conjunction; an empty And is true
//
// Equals and EqualsOrWildcard are deliberately separate node types. A list
// filter never matches rows by wildcard, and a rule match always does.
package queryir
