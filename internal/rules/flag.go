package rules

// ParseFlag converts a bulk-input boolean cell.
// Only the literal "True" is true; every other value, including "true",
// "False" and the empty string, is false.
func ParseFlag(s string) bool {
	return s == "True"
}
