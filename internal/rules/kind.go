package rules

import (
	"fmt"
	"slices"
)

// Kind identifies one allow-list table.
type Kind string

const (
	KindPublicDID Kind = "publish_did"
	KindSchema    Kind = "schema"
	KindCredDef   Kind = "credential_definition"
	KindLogEntry  Kind = "log_entry"
)

// Kinds lists every rule kind in bulk-ingestion order.
var Kinds = []Kind{KindLogEntry, KindPublicDID, KindSchema, KindCredDef}

// Column names shared by the store, the CSV format and the HTTP surface.
const (
	ColRegisteredDID    = "registered_did"
	ColAuthorDID        = "author_did"
	ColSchemaName       = "schema_name"
	ColVersion          = "version"
	ColSchemaIssuerDID  = "schema_issuer_did"
	ColCreddefAuthorDID = "creddef_author_did"
	ColTag              = "tag"
	ColRevRegDef        = "rev_reg_def"
	ColRevRegEntry      = "rev_reg_entry"
	ColSCID             = "scid"
	ColDomain           = "domain"
	ColNamespace        = "namespace"
	ColIdentifier       = "identifier"
	ColLogUpdates       = "log_updates"
	ColDetails          = "details"
)

type kindInfo struct {
	table   string
	summary string
	match   []string // matchable columns, identity order
	attrs   []string // free-text attribute columns
	flags   []string // boolean attribute columns
}

var kindTable = map[Kind]kindInfo{
	KindPublicDID: {
		table:   "allowed_public_did",
		summary: "AllowedPublicDid",
		match:   []string{ColRegisteredDID},
		attrs:   []string{ColDetails},
	},
	KindSchema: {
		table:   "allowed_schema",
		summary: "AllowedSchema",
		match:   []string{ColAuthorDID, ColSchemaName, ColVersion},
		attrs:   []string{ColDetails},
	},
	KindCredDef: {
		table:   "allowed_cred_def",
		summary: "AllowedCredentialDefinition",
		match:   []string{ColSchemaIssuerDID, ColCreddefAuthorDID, ColSchemaName, ColVersion, ColTag},
		attrs:   []string{ColDetails},
		flags:   []string{ColRevRegDef, ColRevRegEntry},
	},
	KindLogEntry: {
		table:   "allowed_log_entry",
		summary: "AllowedLogEntry",
		match:   []string{ColDomain, ColNamespace, ColIdentifier},
		attrs:   []string{ColSCID, ColVersion, ColDetails},
		flags:   []string{ColLogUpdates},
	},
}

// ParseKind resolves a kind name such as "schema" or "log_entry".
// Hyphenated forms ("publish-did") are accepted as used in URLs.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindTable[k]; ok {
		return k, nil
	}
	for _, candidate := range Kinds {
		if hyphenated(string(candidate)) == s {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown rule kind %q", s)
}

// Slug returns the hyphenated form of the kind, as used in URLs and flags.
func (k Kind) Slug() string { return hyphenated(string(k)) }

func hyphenated(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Table returns the store table holding rules of this kind.
func (k Kind) Table() string { return kindTable[k].table }

// SummaryKey returns the name used to key ingestion summaries.
func (k Kind) SummaryKey() string { return kindTable[k].summary }

// MatchColumns returns the matchable columns in identity order.
func (k Kind) MatchColumns() []string { return slices.Clone(kindTable[k].match) }

// AttributeColumns returns the free-text columns that are not matched on.
func (k Kind) AttributeColumns() []string { return slices.Clone(kindTable[k].attrs) }

// FlagColumns returns the boolean attribute columns.
func (k Kind) FlagColumns() []string { return slices.Clone(kindTable[k].flags) }

// TextColumns returns every string-valued column: match columns, then attributes.
func (k Kind) TextColumns() []string {
	info := kindTable[k]
	return append(slices.Clone(info.match), info.attrs...)
}

// Columns returns every column accepted in bulk input for this kind.
func (k Kind) Columns() []string {
	return append(k.TextColumns(), kindTable[k].flags...)
}

// IsFlag reports whether col is a boolean column of this kind.
func (k Kind) IsFlag(col string) bool {
	return slices.Contains(kindTable[k].flags, col)
}

// HasColumn reports whether col belongs to this kind.
func (k Kind) HasColumn(col string) bool {
	return slices.Contains(k.Columns(), col)
}
