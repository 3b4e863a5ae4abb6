package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalObject converts a decoded JSON object to TEXT for storage.
// Map keys are sorted by encoding/json, so equal objects store equal text.
func marshalObject(obj map[string]any) (string, error) {
	if obj == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalObject parses stored TEXT back into an object.
// Numbers decode as json.Number so ledger sequence numbers keep their
// exact digits.
func unmarshalObject(data string) (map[string]any, error) {
	obj := map[string]any{}
	if data == "" || data == "{}" {
		return obj, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}
