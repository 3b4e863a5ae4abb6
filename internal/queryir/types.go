package queryir

// Query is an abstract statement over one table.
//
// This is a sealed interface - only types in this package implement it,
// so compilers can switch over it exhaustively.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
//
// Sealed like Query.
type Predicate interface {
	predicateNode()
}

// Select reads rows from a table.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY id LIMIT <limit> OFFSET <offset>
//
// Limit 0 means unbounded; Offset is only honored with a Limit.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate // nil = no filter
	Limit   int
	Offset  int
}

func (Select) queryNode() {}

// Count counts the rows a Select with the same filter would return.
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// Delete removes rows. A nil filter removes every row of the table.
type Delete struct {
	From   string
	Filter Predicate
}

func (Delete) queryNode() {}

// Equals holds when the column equals Value exactly.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// EqualsOrWildcard holds when the stored column equals Value or holds the
// wildcard sentinel ("*" or empty).
type EqualsOrWildcard struct {
	Field string
	Value string
}

func (EqualsOrWildcard) predicateNode() {}

// And holds when every child predicate holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
