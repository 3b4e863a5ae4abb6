package rules

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// identitySeparator keeps field boundaries in the hashed input so that
// ("ab", "c") and ("a", "bc") yield different identities.
const identitySeparator = "\x1f"

// Identity computes the deterministic rule ID for the given matchable values.
// Values are NFC-normalized so canonically equivalent strings collide, then
// joined in order and hashed into a name-based (v5) UUID in the OID namespace.
func Identity(values ...string) uuid.UUID {
	normalized := make([]string, len(values))
	for i, v := range values {
		normalized[i] = norm.NFC.String(v)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(normalized, identitySeparator)))
}
