package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
)

// SchemaResolver reads documents from the ledger agent.
type SchemaResolver interface {
	Get(ctx context.Context, path string) (map[string]any, error)
}

// Classifier maps requests to criteria.
type Classifier struct {
	ledger SchemaResolver
	logger *slog.Logger
}

// NewClassifier creates a classifier. The resolver is only consulted for
// credential definition requests.
func NewClassifier(ledger SchemaResolver, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{ledger: ledger, logger: logger}
}

// Classify decides which rule kind governs tx and extracts its criteria.
func (c *Classifier) Classify(ctx context.Context, tx endorse.Transaction) Outcome {
	if tx.AuthorGoalCode == endorse.GoalRegisterPublicDID {
		did, ok := stringField(tx.Request, "did")
		if !ok {
			return notEndorsable("transaction request has no did")
		}
		return Endorsable{Criteria: rules.DIDCriteria{DID: did}}
	}

	switch tx.Type {
	case endorse.TypeNym, endorse.TypeAttrib:
		return classifyDestination(tx)
	case endorse.TypeSchema:
		return classifySchema(tx)
	case endorse.TypeCredDef:
		return c.classifyCredDef(ctx, tx)
	default:
		return notEndorsable(fmt.Sprintf("transaction type %q is not auto-endorsable", tx.Type))
	}
}

func classifyDestination(tx endorse.Transaction) Outcome {
	dest, ok := stringField(tx.Payload, "dest")
	if !ok {
		return notEndorsable("transaction has no dest")
	}
	return Endorsable{Criteria: rules.DIDCriteria{DID: dest}}
}

func classifySchema(tx endorse.Transaction) Outcome {
	if tx.AuthorDID == "" {
		return notEndorsable("missing author did")
	}
	if tx.Payload == nil {
		return notEndorsable("missing transaction payload")
	}
	data, _ := tx.Payload["data"].(map[string]any)
	name, okName := stringField(data, "name")
	version, okVersion := stringField(data, "version")
	if !okName || !okVersion {
		return notEndorsable("schema payload has no name or version")
	}
	return Endorsable{Criteria: rules.SchemaCriteria{
		AuthorDID: tx.AuthorDID,
		Name:      name,
		Version:   version,
	}}
}

func (c *Classifier) classifyCredDef(ctx context.Context, tx endorse.Transaction) Outcome {
	if tx.AuthorDID == "" {
		return notEndorsable("missing author did")
	}
	if tx.Payload == nil {
		return notEndorsable("missing transaction payload")
	}
	ref, ok := stringField(tx.Payload, "ref")
	if !ok {
		return notEndorsable("credential definition has no schema ref")
	}
	tag, _ := stringField(tx.Payload, "tag")

	schemaID, err := c.resolveSchemaID(ctx, ref)
	if err != nil {
		c.logger.Warn("schema lookup failed",
			"transaction_id", tx.ID,
			"schema_ref", ref,
			"error", err)
		return notEndorsable(fmt.Sprintf("resolve schema %s: %v", ref, err))
	}

	parts := strings.Split(schemaID, ":")
	if len(parts) != 4 {
		return notEndorsable(fmt.Sprintf("malformed schema id %q", schemaID))
	}
	return Endorsable{Criteria: rules.CredDefCriteria{
		AuthorDID:       tx.AuthorDID,
		SchemaIssuerDID: parts[0],
		SchemaName:      parts[2],
		SchemaVersion:   parts[3],
		Tag:             tag,
	}}
}

func (c *Classifier) resolveSchemaID(ctx context.Context, ref string) (string, error) {
	if c.ledger == nil {
		return "", fmt.Errorf("no ledger configured")
	}
	doc, err := c.ledger.Get(ctx, "schemas/"+ref)
	if err != nil {
		return "", err
	}
	schema, _ := doc["schema"].(map[string]any)
	id, ok := stringField(schema, "id")
	if !ok {
		return "", fmt.Errorf("response has no schema.id")
	}
	return id, nil
}

// stringField reads a non-empty scalar from a decoded JSON object.
// Numbers are rendered in their shortest exact form.
func stringField(m map[string]any, key string) (string, bool) {
	var s string
	switch v := m[key].(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return "", false
	}
	return s, s != ""
}
