package store

import (
	"fmt"

	"github.com/roach88/civil/internal/ir"
)

// marshalList converts a value list to canonical JSON TEXT for storage.
// A nil list is stored as "[]".
func marshalList(list ir.List) (string, error) {
	if list == nil {
		list = ir.List{}
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

// unmarshalList parses canonical JSON TEXT back to a value list.
// Integers round-trip exactly; the decoder never goes through float64.
func unmarshalList(data string) (ir.List, error) {
	if data == "" || data == "[]" {
		return ir.List{}, nil
	}
	list, err := ir.UnmarshalList([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return list, nil
}
