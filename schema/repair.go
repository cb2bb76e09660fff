package schema

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// Repair attempts to parse raw as JSON as-is, and falls back to
// kaptinlin/jsonrepair (which fixes trailing commas, unquoted keys, truncated
// strings, and similar model-emitted near-misses) before giving up. It
// reports whether a repair pass was needed so callers can surface
// Metadata.JSONRepaired.
func Repair(raw string) (value any, repaired bool, err error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, false, nil
	}

	fixed, rerr := jsonrepair.JSONRepair(raw)
	if rerr != nil {
		return nil, false, rerr
	}
	if err := json.Unmarshal([]byte(fixed), &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}
