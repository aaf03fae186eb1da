package persist

import (
	"context"
	"testing"

	"github.com/alufers/frigate-ingestor/internal/normalize"
	"github.com/alufers/frigate-ingestor/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return New(store.New(db))
}

func f64(v float64) *float64 { return &v }

func TestHandleEvent_FirstSightingAutoCreatesTenantAndCamera(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	res := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID:   "default",
		EventID:     "evt1",
		Camera:      "front_door",
		Type:        normalize.EventTypeNew,
		Label:       "person",
		HasSnapshot: true,
		StartTime:   f64(1000),
		Raw:         []byte(`{"type":"new"}`),
	})
	if !res.OK {
		t.Fatalf("expected success, got error kind %q detail %q", res.ErrorKind, res.ErrorDetail)
	}
	row, ok := res.Data.(*store.Event)
	if !ok {
		t.Fatalf("expected *store.Event, got %T", res.Data)
	}
	if row.FrigateID != "evt1" || row.Label != "person" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestHandleEvent_EndUpdatePreservesStartTimeSemanticsViaCoalesce(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	first := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID: "default",
		EventID:   "evt2",
		Camera:    "front_door",
		Type:      normalize.EventTypeNew,
		Label:     "person",
		StartTime: f64(1000),
		Raw:       []byte(`{"type":"new"}`),
	})
	if !first.OK {
		t.Fatalf("first upsert failed: %s", first.ErrorDetail)
	}

	second := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID: "default",
		EventID:   "evt2",
		Camera:    "front_door",
		Type:      normalize.EventTypeEnd,
		Label:     "person",
		EndTime:   f64(2000),
		Raw:       []byte(`{"type":"end"}`),
	})
	if !second.OK {
		t.Fatalf("second upsert failed: %s", second.ErrorDetail)
	}
	row := second.Data.(*store.Event)
	if row.Type != "end" {
		t.Fatalf("expected type end, got %q", row.Type)
	}
	if row.EndTime == nil || *row.EndTime != 2000 {
		t.Fatalf("expected end_time 2000, got %+v", row.EndTime)
	}
	// A null startTime on the end event must not clobber the previously
	// recorded 1000: the conflict update COALESCEs start_time.
	if row.StartTime == nil || *row.StartTime != 1000 {
		t.Fatalf("expected start_time to stay 1000, got %+v", row.StartTime)
	}
}

func TestHandleEvent_NullEndTimeNeverClobbersKnownEndTime(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	first := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID: "default",
		EventID:   "evt3",
		Camera:    "front_door",
		Type:      normalize.EventTypeUpdate,
		EndTime:   f64(500),
		Raw:       []byte(`{}`),
	})
	if !first.OK {
		t.Fatalf("first upsert failed: %s", first.ErrorDetail)
	}

	second := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID: "default",
		EventID:   "evt3",
		Camera:    "front_door",
		Type:      normalize.EventTypeUpdate,
		Raw:       []byte(`{}`),
	})
	if !second.OK {
		t.Fatalf("second upsert failed: %s", second.ErrorDetail)
	}
	row := second.Data.(*store.Event)
	if row.EndTime == nil || *row.EndTime != 500 {
		t.Fatalf("expected end_time to stay 500, got %+v", row.EndTime)
	}
}

func TestHandleReview_PersistsUnderResolvedCamera(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	res := h.HandleReview(ctx, &normalize.NormalizedReview{
		FrigateID: "default",
		ReviewID:  "rev1",
		Camera:    "front_door",
		Severity:  normalize.SeverityAlert,
		Timestamp: f64(1234),
		Raw:       []byte(`{}`),
	})
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.ErrorKind, res.ErrorDetail)
	}
	row := res.Data.(*store.Review)
	if row.Severity != "alert" || row.ReviewID != "rev1" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestHandleAvailability_DoesNotRequireCamera(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	res := h.HandleAvailability(ctx, &normalize.NormalizedAvailable{
		FrigateID: "default",
		Available: true,
		Timestamp: 1700000000,
		Raw:       []byte(`"online"`),
	})
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.ErrorKind, res.ErrorDetail)
	}
	row := res.Data.(*store.AvailabilityLog)
	if !row.Available {
		t.Fatalf("expected available=true")
	}
}

func TestHandleEvent_MultiInstanceIsolation(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	a := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID: "siteA", EventID: "same-id", Camera: "cam1", Type: normalize.EventTypeNew, Raw: []byte(`{}`),
	})
	b := h.HandleEvent(ctx, &normalize.NormalizedEvent{
		FrigateID: "siteB", EventID: "same-id", Camera: "cam1", Type: normalize.EventTypeNew, Raw: []byte(`{}`),
	})
	if !a.OK || !b.OK {
		t.Fatalf("expected both to succeed: a=%+v b=%+v", a, b)
	}
	rowA := a.Data.(*store.Event)
	rowB := b.Data.(*store.Event)
	if rowA.TenantID == rowB.TenantID {
		t.Fatalf("expected distinct tenants for the same event id across instances")
	}
}
