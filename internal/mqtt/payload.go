package mqtt

import (
	"bytes"
	"encoding/json"

	"github.com/alufers/frigate-ingestor/internal/normalize"
)

// decodePayload turns a raw broker payload into the map shape every
// normalizer expects. A JSON object decodes directly, and a body that
// starts with '{' but is not valid JSON is an error; anything else
// (notably the bare "online"/"offline" string Frigate's availability
// topic sometimes carries with no JSON envelope at all) is wrapped per
// spec.md §4.1 step 1.
func decodePayload(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return normalize.WrapAvailabilityString(""), nil
	}

	if trimmed[0] == '{' {
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, err
		}
		return m, nil
	}

	// Either a bare quoted JSON string ("online") or a raw unquoted token
	// (online) - both normalize to the same wrapped shape.
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return normalize.WrapAvailabilityString(s), nil
	}
	return normalize.WrapAvailabilityString(string(trimmed)), nil
}
