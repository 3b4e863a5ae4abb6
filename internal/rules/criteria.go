package rules

// Field is one column/value pair.
type Field struct {
	Column string
	Value  string
}

// Criteria is the normalized tuple extracted from a pending transaction and
// matched against stored rules of one kind.
//
// Sealed: DIDCriteria, SchemaCriteria, CredDefCriteria and LogEntryCriteria
// are the only implementations.
type Criteria interface {
	Kind() Kind
	// Fields returns the query value for every matchable column of Kind.
	Fields() []Field
	criteriaNode()
}

// DIDCriteria asks whether an identifier may be made public.
type DIDCriteria struct {
	DID string
}

func (DIDCriteria) Kind() Kind { return KindPublicDID }
func (DIDCriteria) criteriaNode() {}

func (c DIDCriteria) Fields() []Field {
	return []Field{{ColRegisteredDID, c.DID}}
}

// SchemaCriteria asks whether an author may publish a schema.
type SchemaCriteria struct {
	AuthorDID string
	Name      string
	Version   string
}

func (SchemaCriteria) Kind() Kind { return KindSchema }
func (SchemaCriteria) criteriaNode() {}

func (c SchemaCriteria) Fields() []Field {
	return []Field{
		{ColAuthorDID, c.AuthorDID},
		{ColSchemaName, c.Name},
		{ColVersion, c.Version},
	}
}

// CredDefCriteria asks whether an author may publish a credential definition
// over the schema identified by issuer, name and version.
type CredDefCriteria struct {
	AuthorDID       string
	SchemaIssuerDID string
	SchemaName      string
	SchemaVersion   string
	Tag             string
}

func (CredDefCriteria) Kind() Kind { return KindCredDef }
func (CredDefCriteria) criteriaNode() {}

func (c CredDefCriteria) Fields() []Field {
	return []Field{
		{ColSchemaIssuerDID, c.SchemaIssuerDID},
		{ColCreddefAuthorDID, c.AuthorDID},
		{ColSchemaName, c.SchemaName},
		{ColVersion, c.SchemaVersion},
		{ColTag, c.Tag},
	}
}

// LogEntryCriteria asks whether a webvh log entry may be witnessed.
// SCID is carried for reporting; it is not a matchable column.
type LogEntryCriteria struct {
	SCID       string
	Domain     string
	Namespace  string
	Identifier string
}

func (LogEntryCriteria) Kind() Kind { return KindLogEntry }
func (LogEntryCriteria) criteriaNode() {}

func (c LogEntryCriteria) Fields() []Field {
	return []Field{
		{ColDomain, c.Domain},
		{ColNamespace, c.Namespace},
		{ColIdentifier, c.Identifier},
	}
}
