package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// marshalSettings converts Settings to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so identical settings store identical text.
func marshalSettings(s ir.Settings) (string, error) {
	data, err := ir.MarshalCanonical(map[string]any{
		"indent":   s.Indent,
		"prettify": s.Prettify,
	})
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(data), nil
}

// unmarshalSettings parses stored settings. Missing fields keep the
// generator defaults.
func unmarshalSettings(data string) (ir.Settings, error) {
	s := ir.DefaultSettings()
	if data == "" || data == "{}" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return ir.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}
