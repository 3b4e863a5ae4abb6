package rules

// Wildcard is the sentinel that, stored in a rule field, matches any value.
const Wildcard = "*"

// IsWildcard reports whether a stored rule value matches anything.
// An empty value is treated as the wildcard.
func IsWildcard(v string) bool {
	return v == Wildcard || v == ""
}

// wildcard normalizes an empty matchable value to the sentinel.
func wildcard(v string) string {
	if v == "" {
		return Wildcard
	}
	return v
}

// Matches reports whether rule r authorizes criteria c.
//
// Every matchable field must either equal the query value or hold the
// wildcard. Rules of a different kind never match.
func Matches(r Rule, c Criteria) bool {
	if r.Kind() != c.Kind() {
		return false
	}
	stored := r.Values()
	for _, f := range c.Fields() {
		v := stored[f.Column]
		if !IsWildcard(v) && v != f.Value {
			return false
		}
	}
	return true
}

// MatchAny reports whether at least one rule authorizes c.
// There is no priority between matching rules.
func MatchAny(rs []Rule, c Criteria) bool {
	for _, r := range rs {
		if Matches(r, c) {
			return true
		}
	}
	return false
}
