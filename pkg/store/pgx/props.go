package pgx

import (
	"encoding/json"
	"fmt"
)

func encodeProps(props map[string]string) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to marshal properties: %w", err)
	}
	return string(data), nil
}

func decodeProps(raw []byte) (map[string]string, error) {
	props := make(map[string]string)
	if len(raw) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return props, nil
}

// textArray keeps empty filters non-NULL so cardinality() sees zero.
func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
