package rules

import (
	"fmt"

	"github.com/google/uuid"
)

// Rule is one allow-list entry.
//
// This is a sealed interface: PublicDID, Schema, CredDef and LogEntry are the
// only implementations, so type switches over Rule are exhaustive.
type Rule interface {
	Kind() Kind
	RuleID() uuid.UUID
	// Values returns every string-valued column keyed by column name.
	Values() map[string]string
	// Flags returns every boolean column keyed by column name.
	Flags() map[string]bool
	ruleNode()
}

// PublicDID allows an identifier to be registered as public.
type PublicDID struct {
	ID            uuid.UUID `json:"id"`
	RegisteredDID string    `json:"registered_did"`
	Details       string    `json:"details,omitempty"`
}

// NewPublicDID builds a PublicDID rule with its deterministic identity.
func NewPublicDID(did, details string) PublicDID {
	r := PublicDID{RegisteredDID: wildcard(did), Details: details}
	r.ID = Identity(r.RegisteredDID)
	return r
}

func (PublicDID) Kind() Kind { return KindPublicDID }
func (r PublicDID) RuleID() uuid.UUID { return r.ID }
func (PublicDID) Flags() map[string]bool { return map[string]bool{} }
func (PublicDID) ruleNode() {}

func (r PublicDID) Values() map[string]string {
	return map[string]string{
		ColRegisteredDID: r.RegisteredDID,
		ColDetails:       r.Details,
	}
}

// Schema allows an author to publish a schema.
type Schema struct {
	ID         uuid.UUID `json:"id"`
	AuthorDID  string    `json:"author_did"`
	SchemaName string    `json:"schema_name"`
	Version    string    `json:"version"`
	Details    string    `json:"details,omitempty"`
}

// NewSchema builds a Schema rule with its deterministic identity.
func NewSchema(authorDID, schemaName, version, details string) Schema {
	r := Schema{
		AuthorDID:  wildcard(authorDID),
		SchemaName: wildcard(schemaName),
		Version:    wildcard(version),
		Details:    details,
	}
	r.ID = Identity(r.AuthorDID, r.SchemaName, r.Version)
	return r
}

func (Schema) Kind() Kind { return KindSchema }
func (r Schema) RuleID() uuid.UUID { return r.ID }
func (Schema) Flags() map[string]bool { return map[string]bool{} }
func (Schema) ruleNode() {}

func (r Schema) Values() map[string]string {
	return map[string]string{
		ColAuthorDID:  r.AuthorDID,
		ColSchemaName: r.SchemaName,
		ColVersion:    r.Version,
		ColDetails:    r.Details,
	}
}

// CredDef allows an author to publish a credential definition over a schema.
// RevRegDef and RevRegEntry record whether the matching revocation registry
// definition and entry writes are also allowed.
type CredDef struct {
	ID               uuid.UUID `json:"id"`
	SchemaIssuerDID  string    `json:"schema_issuer_did"`
	CreddefAuthorDID string    `json:"creddef_author_did"`
	SchemaName       string    `json:"schema_name"`
	Version          string    `json:"version"`
	Tag              string    `json:"tag"`
	RevRegDef        bool      `json:"rev_reg_def"`
	RevRegEntry      bool      `json:"rev_reg_entry"`
	Details          string    `json:"details,omitempty"`
}

// NewCredDef builds a CredDef rule with its deterministic identity.
func NewCredDef(schemaIssuerDID, creddefAuthorDID, schemaName, version, tag string, revRegDef, revRegEntry bool, details string) CredDef {
	r := CredDef{
		SchemaIssuerDID:  wildcard(schemaIssuerDID),
		CreddefAuthorDID: wildcard(creddefAuthorDID),
		SchemaName:       wildcard(schemaName),
		Version:          wildcard(version),
		Tag:              wildcard(tag),
		RevRegDef:        revRegDef,
		RevRegEntry:      revRegEntry,
		Details:          details,
	}
	r.ID = Identity(r.SchemaIssuerDID, r.CreddefAuthorDID, r.SchemaName, r.Version, r.Tag)
	return r
}

func (CredDef) Kind() Kind { return KindCredDef }
func (r CredDef) RuleID() uuid.UUID { return r.ID }
func (CredDef) ruleNode() {}

func (r CredDef) Values() map[string]string {
	return map[string]string{
		ColSchemaIssuerDID:  r.SchemaIssuerDID,
		ColCreddefAuthorDID: r.CreddefAuthorDID,
		ColSchemaName:       r.SchemaName,
		ColVersion:          r.Version,
		ColTag:              r.Tag,
		ColDetails:          r.Details,
	}
}

func (r CredDef) Flags() map[string]bool {
	return map[string]bool{
		ColRevRegDef:   r.RevRegDef,
		ColRevRegEntry: r.RevRegEntry,
	}
}

// LogEntry allows witnessing of a webvh log entry.
// Identity covers domain, namespace and identifier; SCID and Version are
// recorded but do not distinguish rules.
type LogEntry struct {
	ID         uuid.UUID `json:"id"`
	SCID       string    `json:"scid"`
	Domain     string    `json:"domain"`
	Namespace  string    `json:"namespace"`
	Identifier string    `json:"identifier"`
	Version    string    `json:"version"`
	LogUpdates bool      `json:"log_updates"`
	Details    string    `json:"details,omitempty"`
}

// NewLogEntry builds a LogEntry rule with its deterministic identity.
func NewLogEntry(scid, domain, namespace, identifier, version string, logUpdates bool, details string) LogEntry {
	r := LogEntry{
		SCID:       scid,
		Domain:     wildcard(domain),
		Namespace:  wildcard(namespace),
		Identifier: wildcard(identifier),
		Version:    version,
		LogUpdates: logUpdates,
		Details:    details,
	}
	r.ID = Identity(r.Domain, r.Namespace, r.Identifier)
	return r
}

func (LogEntry) Kind() Kind { return KindLogEntry }
func (r LogEntry) RuleID() uuid.UUID { return r.ID }
func (LogEntry) ruleNode() {}

func (r LogEntry) Values() map[string]string {
	return map[string]string{
		ColSCID:       r.SCID,
		ColDomain:     r.Domain,
		ColNamespace:  r.Namespace,
		ColIdentifier: r.Identifier,
		ColVersion:    r.Version,
		ColDetails:    r.Details,
	}
}

func (r LogEntry) Flags() map[string]bool {
	return map[string]bool{ColLogUpdates: r.LogUpdates}
}

// Build constructs a rule of the given kind from column values as they
// arrive in bulk input. Boolean columns go through ParseFlag; missing
// columns are treated as empty.
func Build(kind Kind, values map[string]string) (Rule, error) {
	v := func(col string) string { return values[col] }
	switch kind {
	case KindPublicDID:
		return NewPublicDID(v(ColRegisteredDID), v(ColDetails)), nil
	case KindSchema:
		return NewSchema(v(ColAuthorDID), v(ColSchemaName), v(ColVersion), v(ColDetails)), nil
	case KindCredDef:
		return NewCredDef(
			v(ColSchemaIssuerDID), v(ColCreddefAuthorDID), v(ColSchemaName), v(ColVersion), v(ColTag),
			ParseFlag(v(ColRevRegDef)), ParseFlag(v(ColRevRegEntry)), v(ColDetails),
		), nil
	case KindLogEntry:
		return NewLogEntry(
			v(ColSCID), v(ColDomain), v(ColNamespace), v(ColIdentifier), v(ColVersion),
			ParseFlag(v(ColLogUpdates)), v(ColDetails),
		), nil
	default:
		return nil, fmt.Errorf("build rule: unknown kind %q", kind)
	}
}

// singleAddFlags are the flags a rule added on its own gets when the caller
// leaves them out. Bulk input has no such defaults: a missing cell is false.
var singleAddFlags = map[Kind][]string{
	KindCredDef: {ColRevRegDef, ColRevRegEntry},
}

// BuildSingle is Build for one rule added outside a bulk file. Absent
// credential definition flags default to true.
func BuildSingle(kind Kind, values map[string]string) (Rule, error) {
	filled := make(map[string]string, len(values))
	for col, v := range values {
		filled[col] = v
	}
	for _, col := range singleAddFlags[kind] {
		if _, ok := filled[col]; !ok {
			filled[col] = "True"
		}
	}
	return Build(kind, filled)
}

// MatchValues returns the rule's matchable fields in identity order.
func MatchValues(r Rule) []Field {
	values := r.Values()
	cols := r.Kind().MatchColumns()
	fields := make([]Field, len(cols))
	for i, col := range cols {
		fields[i] = Field{Column: col, Value: values[col]}
	}
	return fields
}

// Restore rebuilds a stored rule, keeping the identity it was stored under.
func Restore(kind Kind, id uuid.UUID, values map[string]string, flags map[string]bool) (Rule, error) {
	switch kind {
	case KindPublicDID:
		return PublicDID{ID: id, RegisteredDID: values[ColRegisteredDID], Details: values[ColDetails]}, nil
	case KindSchema:
		return Schema{
			ID:         id,
			AuthorDID:  values[ColAuthorDID],
			SchemaName: values[ColSchemaName],
			Version:    values[ColVersion],
			Details:    values[ColDetails],
		}, nil
	case KindCredDef:
		return CredDef{
			ID:               id,
			SchemaIssuerDID:  values[ColSchemaIssuerDID],
			CreddefAuthorDID: values[ColCreddefAuthorDID],
			SchemaName:       values[ColSchemaName],
			Version:          values[ColVersion],
			Tag:              values[ColTag],
			RevRegDef:        flags[ColRevRegDef],
			RevRegEntry:      flags[ColRevRegEntry],
			Details:          values[ColDetails],
		}, nil
	case KindLogEntry:
		return LogEntry{
			ID:         id,
			SCID:       values[ColSCID],
			Domain:     values[ColDomain],
			Namespace:  values[ColNamespace],
			Identifier: values[ColIdentifier],
			Version:    values[ColVersion],
			LogUpdates: flags[ColLogUpdates],
			Details:    values[ColDetails],
		}, nil
	default:
		return nil, fmt.Errorf("restore rule: unknown kind %q", kind)
	}
}
