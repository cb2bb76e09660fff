package chunk

import "encoding/json"

// renderAny renders an arbitrary value to a string for token counting and
// chunk content when it isn't already a string. JSON is used as a stable,
// whitespace-light approximation of "how many tokens will this cost".
func renderAny(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// renderEntry renders one map entry as "key: value" for packing into a
// paragraph-like chunk body.
func renderEntry(key string, value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return key + ": "
	}
	return key + ": " + string(b)
}
