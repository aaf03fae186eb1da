package normalize

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("failed to decode fixture JSON: %v", err)
	}
	return m
}

func TestParseTopic_MultiInstanceVsDefault(t *testing.T) {
	p := ParseTopic("frigate/acme/events/door")
	if p.FrigateID != "acme" || p.Camera != "door" || p.Filter != FilterEvents {
		t.Fatalf("unexpected parse: %+v", p)
	}

	p2 := ParseTopic("frigate/events/door")
	if p2.FrigateID != "default" || p2.Camera != "door" || p2.Filter != FilterEvents {
		t.Fatalf("unexpected parse: %+v", p2)
	}
}

func TestNormalizeEvent_NewEvent(t *testing.T) {
	payload := decode(t, `{
		"type":"new",
		"before":{"id":"e1","camera":"front_door","label":"person"},
		"after":{"id":"e1","camera":"front_door","label":"person","snapshot":true},
		"start_time":1700000000
	}`)

	ev := NormalizeEvent(payload, "frigate/events/front_door")
	if ev == nil {
		t.Fatal("expected non-nil normalized event")
	}
	if ev.FrigateID != "default" || ev.Camera != "front_door" || ev.EventID != "e1" {
		t.Fatalf("unexpected fields: %+v", ev)
	}
	if ev.Type != EventTypeNew || ev.Label != "person" || !ev.HasSnapshot {
		t.Fatalf("unexpected fields: %+v", ev)
	}
	if ev.StartTime == nil || *ev.StartTime != 1700000000 {
		t.Fatalf("expected start time 1700000000, got %+v", ev.StartTime)
	}
	if ev.EndTime != nil {
		t.Fatalf("expected nil end time, got %+v", ev.EndTime)
	}
}

func TestNormalizeEvent_InvalidTypeDropped(t *testing.T) {
	payload := decode(t, `{"type":"bogus","id":"e1"}`)
	if ev := NormalizeEvent(payload, "frigate/events/door"); ev != nil {
		t.Fatalf("expected nil for invalid type, got %+v", ev)
	}
}

func TestNormalizeEvent_SnapshotStringIsTruthy(t *testing.T) {
	payload := decode(t, `{"type":"new","id":"e1","snapshot":"/path/to.jpg"}`)
	ev := NormalizeEvent(payload, "frigate/events/door")
	if ev == nil || !ev.HasSnapshot {
		t.Fatalf("expected hasSnapshot=true for non-empty string snapshot field")
	}
}

func TestNormalizeEvent_TopicCameraWinsOverPayload(t *testing.T) {
	// spec.md §4.2: the topic's camera segment takes priority; the
	// payload's own camera field is only a fallback for topics that carry
	// no camera segment at all (e.g. the bare "frigate/events" filter).
	payload := decode(t, `{"type":"new","id":"e1","camera":"payload_says_other_cam"}`)
	ev := NormalizeEvent(payload, "frigate/events/topic_cam")
	if ev == nil || ev.Camera != "topic_cam" {
		t.Fatalf("expected topic camera to win, got %+v", ev)
	}
}

func TestNormalizeEvent_PayloadCameraFallsBackWhenTopicHasNone(t *testing.T) {
	payload := decode(t, `{"type":"new","id":"e1","camera":"payload_cam"}`)
	ev := NormalizeEvent(payload, "frigate/events")
	if ev == nil || ev.Camera != "payload_cam" {
		t.Fatalf("expected payload camera fallback, got %+v", ev)
	}
}

func TestNormalizeEvent_MultiInstanceIsolation(t *testing.T) {
	payloadA := decode(t, `{"type":"new","id":"X","camera":"cam1"}`)
	evA := NormalizeEvent(payloadA, "frigate/siteA/events/cam1")
	evB := NormalizeEvent(payloadA, "frigate/siteB/events/cam1")
	if evA.FrigateID != "siteA" || evB.FrigateID != "siteB" {
		t.Fatalf("expected distinct frigate ids, got %q and %q", evA.FrigateID, evB.FrigateID)
	}
}

func TestNormalizeReview_Valid(t *testing.T) {
	payload := decode(t, `{"id":"r1","camera":"door","severity":"alert","retracted":false,"timestamp":1700000100}`)
	rv := NormalizeReview(payload, "frigate/reviews/door")
	if rv == nil {
		t.Fatal("expected non-nil normalized review")
	}
	if rv.ReviewID != "r1" || rv.Severity != SeverityAlert || rv.Retracted {
		t.Fatalf("unexpected fields: %+v", rv)
	}
}

func TestNormalizeReview_MissingSeverityDropped(t *testing.T) {
	payload := decode(t, `{"id":"r1"}`)
	if rv := NormalizeReview(payload, "frigate/reviews/door"); rv != nil {
		t.Fatalf("expected nil, got %+v", rv)
	}
}

func TestNormalizeReview_InvalidSeverityDropped(t *testing.T) {
	payload := decode(t, `{"id":"r1","severity":"critical"}`)
	if rv := NormalizeReview(payload, "frigate/reviews/door"); rv != nil {
		t.Fatalf("expected nil, got %+v", rv)
	}
}

func TestNormalizeAvailable_BareStringLiterals(t *testing.T) {
	cases := map[string]bool{
		"online":  true,
		"offline": false,
		"true":    true,
		"false":   false,
		"1":       true,
		"0":       false,
	}
	for body, want := range cases {
		payload := WrapAvailabilityString(body)
		av := NormalizeAvailableAt(payload, "frigate/available", 123.0)
		if av.Available != want {
			t.Errorf("body %q: expected available=%v, got %v", body, want, av.Available)
		}
	}
}

func TestNormalizeAvailable_GarbageStringIsTruthy(t *testing.T) {
	payload := WrapAvailabilityString("maybe")
	av := NormalizeAvailableAt(payload, "frigate/available", 123.0)
	if !av.Available {
		t.Fatalf("expected truthy fallback for garbage string, got false")
	}
}

func TestNormalizeAvailable_StampsNowWhenMissing(t *testing.T) {
	payload := decode(t, `{"available":true}`)
	av := NormalizeAvailableAt(payload, "frigate/available", 555.5)
	if av.Timestamp != 555.5 {
		t.Fatalf("expected stamped timestamp 555.5, got %v", av.Timestamp)
	}
}

func TestNormalize_RoutesToDedicatedNormalizer(t *testing.T) {
	eventPayload := decode(t, `{"type":"new","id":"e1"}`)
	if v, ok := Normalize(eventPayload, "frigate/events/door").(*NormalizedEvent); !ok || v == nil {
		t.Fatalf("expected *NormalizedEvent from router")
	}

	reviewPayload := decode(t, `{"id":"r1","severity":"alert"}`)
	if v, ok := Normalize(reviewPayload, "frigate/reviews/door").(*NormalizedReview); !ok || v == nil {
		t.Fatalf("expected *NormalizedReview from router")
	}

	availPayload := decode(t, `{"available":true}`)
	if v, ok := Normalize(availPayload, "frigate/available/door").(*NormalizedAvailable); !ok || v == nil {
		t.Fatalf("expected *NormalizedAvailable from router")
	}
}

func TestNormalize_UnknownTopicDropped(t *testing.T) {
	payload := decode(t, `{}`)
	if v := Normalize(payload, "frigate/unknown/door"); v != nil {
		t.Fatalf("expected nil for unmatched topic, got %+v", v)
	}
}

func TestNormalizeEvent_ReferentiallyTransparent(t *testing.T) {
	payload := decode(t, `{"type":"end","id":"e1","camera":"door","start_time":1,"end_time":2}`)
	a := NormalizeEvent(payload, "frigate/events/door")
	b := NormalizeEvent(payload, "frigate/events/door")
	if string(a.Raw) != string(b.Raw) || a.EventID != b.EventID || *a.EndTime != *b.EndTime {
		t.Fatalf("expected referentially transparent output for equal inputs")
	}
}
