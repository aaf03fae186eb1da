package normalize

import "strings"

// Filter identifies which of the three subscribed topic filters a topic
// belongs to.
type Filter int

const (
	FilterUnknown Filter = iota
	FilterEvents
	FilterReviews
	FilterAvailable
)

// ParsedTopic holds the pieces extracted from a Frigate MQTT topic, per
// spec.md §4.2's topic parsing rules:
//
//	frigate[/<frigate_id>]/{events|reviews|available}[/<camera>]
type ParsedTopic struct {
	FrigateID string
	Filter    Filter
	Camera    string // "" (fall back to payload) if topic carries none
}

var filterNames = map[string]Filter{
	"events":    FilterEvents,
	"reviews":   FilterReviews,
	"available": FilterAvailable,
}

// ParseTopic splits topic on "/" and extracts the frigate id, the matched
// filter, and the camera segment (if present).
func ParseTopic(topic string) ParsedTopic {
	parts := strings.Split(topic, "/")
	if len(parts) == 0 || parts[0] != "frigate" {
		return ParsedTopic{Filter: FilterUnknown}
	}

	if len(parts) < 2 {
		return ParsedTopic{Filter: FilterUnknown}
	}

	frigateID := "default"
	rest := parts[1:]
	if _, ok := filterNames[parts[1]]; !ok {
		// parts[1] is the frigate id; the filter segment follows it.
		frigateID = parts[1]
		rest = parts[2:]
	}

	if len(rest) == 0 {
		return ParsedTopic{FrigateID: frigateID, Filter: FilterUnknown}
	}

	filter, ok := filterNames[rest[0]]
	if !ok {
		return ParsedTopic{FrigateID: frigateID, Filter: FilterUnknown}
	}

	camera := ""
	if len(rest) > 1 && rest[1] != "" {
		camera = rest[1]
	}

	return ParsedTopic{FrigateID: frigateID, Filter: filter, Camera: camera}
}

// MatchesFilter reports whether topic matches one of the three subscribed
// filter strings exactly (frigate/events/#, frigate/reviews/#,
// frigate/available/#), including multi-instance variants
// (frigate/<id>/events/#, ...).
func (p ParsedTopic) MatchesFilter() bool {
	return p.Filter != FilterUnknown
}
