package classify

import (
	"fmt"
	"strings"

	"github.com/roach88/endorser/internal/rules"
)

// LogEntryCriteria parses a did:webvh identifier of the form
// did:webvh:<scid>:<domain>:<namespace>:<identifier>.
func LogEntryCriteria(did string) (rules.LogEntryCriteria, error) {
	parts := strings.Split(did, ":")
	if len(parts) != 6 || parts[0] != "did" || parts[1] != "webvh" {
		return rules.LogEntryCriteria{}, fmt.Errorf("not a did:webvh log entry identifier: %q", did)
	}
	for _, p := range parts[2:] {
		if p == "" {
			return rules.LogEntryCriteria{}, fmt.Errorf("empty segment in %q", did)
		}
	}
	return rules.LogEntryCriteria{
		SCID:       parts[2],
		Domain:     parts[3],
		Namespace:  parts[4],
		Identifier: parts[5],
	}, nil
}

// Witness record types.
const (
	RecordLogEntry         = "log-entry"
	RecordAttestedResource = "attested-resource"
)

// WitnessCriteria extracts log-entry criteria from a witnessing record. A
// log entry names its DID in state.id; an attested resource id is the DID
// followed by a "/" path.
func WitnessCriteria(recordType string, record map[string]any) (rules.LogEntryCriteria, error) {
	var did string
	switch recordType {
	case RecordLogEntry:
		state, _ := record["state"].(map[string]any)
		did, _ = state["id"].(string)
	case RecordAttestedResource:
		id, _ := record["id"].(string)
		did, _, _ = strings.Cut(id, "/")
	default:
		return rules.LogEntryCriteria{}, fmt.Errorf("unexpected record type %q", recordType)
	}
	return LogEntryCriteria(did)
}
