package normalize

import (
	"encoding/json"
	"time"
)

// NormalizeEvent converts a decoded frigate/events/# payload into a
// NormalizedEvent, or nil if the payload's type field isn't one of
// new/update/end (spec.md §4.2's event type validation).
func NormalizeEvent(payload map[string]any, topic string) *NormalizedEvent {
	parsed := ParseTopic(topic)

	rawType, _ := payload["type"].(string)
	switch EventType(rawType) {
	case EventTypeNew, EventTypeUpdate, EventTypeEnd:
	default:
		return nil
	}

	before := getMap(payload, "before")
	after := getMap(payload, "after")

	camera := parsed.Camera
	if camera == "" {
		camera = firstTopLevelOrNested(payload, before, after, "camera")
	}
	if camera == "" {
		camera = "unknown"
	}

	eventID := firstNonEmptyString("unknown",
		[2]any{payload, "id"},
		[2]any{after, "id"},
		[2]any{before, "id"},
	)

	label := firstNonEmptyString("unknown",
		[2]any{payload, "label"},
		[2]any{after, "label"},
		[2]any{before, "label"},
	)

	hasSnapshot := orBool(
		toBoolean(payload["snapshot"]),
		toBoolean(before["snapshot"]),
		toBoolean(after["snapshot"]),
	)
	hasClip := orBool(
		toBoolean(payload["clip"]),
		toBoolean(before["clip"]),
		toBoolean(after["clip"]),
	)

	return &NormalizedEvent{
		FrigateID:   parsed.FrigateID,
		EventID:     eventID,
		Camera:      camera,
		Type:        EventType(rawType),
		Label:       label,
		HasSnapshot: hasSnapshot,
		HasClip:     hasClip,
		StartTime:   toNumber(payload["start_time"]),
		EndTime:     toNumber(payload["end_time"]),
		Raw:         mustMarshal(payload),
	}
}

// firstTopLevelOrNested looks for key at the top level, then in after, then
// in before — used for the event camera fallback chain.
func firstTopLevelOrNested(top, before, after map[string]any, key string) string {
	if s := getString(top, key); s != "" {
		return s
	}
	if s := getString(after, key); s != "" {
		return s
	}
	if s := getString(before, key); s != "" {
		return s
	}
	return ""
}

// NormalizeReview converts a decoded frigate/reviews/# payload into a
// NormalizedReview, or nil if id/severity are missing or severity is
// invalid. Some Frigate versions wrap the body in {before, after}; this
// unwraps opportunistically, preferring "after" (spec.md's Open Question 3
// notes this path is thinly documented upstream — we take the most recent
// state as authoritative).
func NormalizeReview(payload map[string]any, topic string) *NormalizedReview {
	parsed := ParseTopic(topic)

	body := payload
	if after := getMap(payload, "after"); after != nil {
		body = after
	} else if before := getMap(payload, "before"); before != nil {
		body = before
	}

	id := getString(body, "id")
	severityRaw := getString(body, "severity")
	if id == "" || severityRaw == "" {
		return nil
	}

	switch Severity(severityRaw) {
	case SeverityAlert, SeverityDetection, SeverityReview:
	default:
		return nil
	}

	camera := getString(body, "camera")
	if camera == "" {
		camera = parsed.Camera
	}
	if camera == "" {
		camera = "unknown"
	}

	return &NormalizedReview{
		FrigateID: parsed.FrigateID,
		ReviewID:  id,
		Camera:    camera,
		Severity:  Severity(severityRaw),
		Retracted: toBoolean(body["retracted"]),
		Timestamp: toNumber(body["timestamp"]),
		Raw:       mustMarshal(payload),
	}
}

// NormalizeAvailable converts a decoded frigate/available/# payload into a
// NormalizedAvailable, stamping the current wall clock when the payload
// carries no timestamp. See NormalizeAvailableAt for the testable, pure
// variant.
func NormalizeAvailable(payload map[string]any, topic string) *NormalizedAvailable {
	return NormalizeAvailableAt(payload, topic, float64(time.Now().Unix()))
}

// NormalizeAvailableAt is NormalizeAvailable with the "now" clock supplied
// by the caller, keeping the impurity at the edge so tests can inject a
// fixed clock (spec.md §9, "Availability timestamp").
func NormalizeAvailableAt(payload map[string]any, topic string, now float64) *NormalizedAvailable {
	parsed := ParseTopic(topic)

	available := false
	if v, ok := payload["available"]; ok {
		available = toBoolean(v)
	} else if v, ok := payload["online"]; ok {
		available = toBoolean(v)
	}

	ts := now
	if n := toNumber(payload["timestamp"]); n != nil {
		ts = *n
	}

	return &NormalizedAvailable{
		FrigateID: parsed.FrigateID,
		Available: available,
		Timestamp: ts,
		Raw:       mustMarshal(payload),
	}
}

// Normalize routes a decoded payload to the dedicated normalizer matching
// topic's filter (spec.md §6.2). Returns nil if the topic matches no known
// filter or the dedicated normalizer rejects the payload.
func Normalize(payload map[string]any, topic string) any {
	switch ParseTopic(topic).Filter {
	case FilterEvents:
		if v := NormalizeEvent(payload, topic); v != nil {
			return v
		}
		return nil
	case FilterReviews:
		if v := NormalizeReview(payload, topic); v != nil {
			return v
		}
		return nil
	case FilterAvailable:
		return NormalizeAvailable(payload, topic)
	default:
		return nil
	}
}

// WrapAvailabilityString wraps a bare availability string body ("online",
// "offline", "true", "false", "1", "0", case-insensitive) into the object
// shape normalizers expect, per spec.md §4.1 step 1.
func WrapAvailabilityString(body string) map[string]any {
	return map[string]any{"available": availabilityStringToBool(body)}
}

func availabilityStringToBool(s string) bool {
	switch lower := toLower(s); lower {
	case "online", "true", "1":
		return true
	case "offline", "false", "0":
		return false
	default:
		// Falls through to the general truthy-string rule (spec.md §8.3
		// property 10): any other non-empty string is truthy.
		return toBoolean(s)
	}
}

func toLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func mustMarshal(v map[string]any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return json.RawMessage(b)
}
