// Package persist turns normalized MQTT payloads into committed rows,
// running the resolve-then-write sequence spec.md §4.5 describes. Each
// handler resolves the owning tenant/camera first, then opens a single
// store transaction per message; inside it the event and review handlers
// re-verify that the camera resolution still holds before upserting, and
// the availability handler inserts its row.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/alufers/frigate-ingestor/internal/normalize"
	"github.com/alufers/frigate-ingestor/internal/resolve"
	"github.com/alufers/frigate-ingestor/internal/store"
	"gorm.io/gorm"
)

// Error kinds surfaced on Result.ErrorKind, per spec.md §4.5/§7.
const (
	ErrCameraResolutionFailed = "camera_resolution_failed"
	ErrTenantResolutionFailed = "tenant_resolution_failed"
	ErrCameraTenantMismatch   = "camera_tenant_mismatch"
	ErrHandlerError           = "handler_error"
)

// Result is the outcome every handler in this package returns. Handlers
// never panic or return a bare Go error to the bus — every failure mode
// is classified into ErrorKind so callers (metrics, logs) can count by
// kind without string-matching error text.
type Result struct {
	OK          bool
	Data        any
	ErrorKind   string
	ErrorDetail string
}

func failure(kind string, err error) Result {
	return Result{OK: false, ErrorKind: kind, ErrorDetail: err.Error()}
}

// Handlers wires a resolver and store together into the three message
// handlers the bus dispatches to.
type Handlers struct {
	resolver *resolve.Resolver
	store    *store.Store
}

// New constructs Handlers over the given store, owning its own resolver.
func New(s *store.Store) *Handlers {
	return &Handlers{resolver: resolve.New(s), store: s}
}

// HandleEvent resolves the event's camera, re-checks the camera's tenant
// inside the transaction, and upserts the event row keyed on
// (tenantId, frigateId's event id).
func (h *Handlers) HandleEvent(ctx context.Context, ev *normalize.NormalizedEvent) Result {
	rc, err := h.resolver.ResolveCamera(ctx, ev.FrigateID, ev.Camera)
	if err != nil {
		return failure(classifyResolveErr(err), err)
	}

	var result Result
	txErr := h.store.Transaction(ctx, func(tx *gorm.DB) error {
		camera, err := h.store.GetCameraByID(ctx, tx, rc.CameraID)
		if err != nil {
			result = failure(ErrCameraResolutionFailed, err)
			return err
		}
		if camera.TenantID != rc.TenantID {
			err := fmt.Errorf("camera %s belongs to tenant %s, expected %s", rc.CameraID, camera.TenantID, rc.TenantID)
			result = failure(ErrCameraTenantMismatch, err)
			return err
		}

		row := &store.Event{
			ID:          store.NewID(),
			TenantID:    rc.TenantID,
			CameraID:    rc.CameraID,
			FrigateID:   ev.EventID,
			Type:        string(ev.Type),
			Label:       ev.Label,
			HasSnapshot: ev.HasSnapshot,
			HasClip:     ev.HasClip,
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
			RawPayload:  ev.Raw,
		}
		if err := store.UpsertEvent(tx, row); err != nil {
			result = failure(ErrHandlerError, err)
			return err
		}
		// Re-read so the result reflects the persisted row after any
		// conflict update, not just the values this message carried.
		var persisted store.Event
		if err := tx.Where("tenant_id = ? AND frigate_id = ?", rc.TenantID, ev.EventID).First(&persisted).Error; err != nil {
			result = failure(ErrHandlerError, err)
			return err
		}
		result = Result{OK: true, Data: &persisted}
		return nil
	})
	if txErr != nil && result.ErrorKind == "" {
		result = failure(ErrHandlerError, txErr)
	}
	return result
}

// HandleReview resolves the review's camera the same way HandleEvent
// does, then upserts the review row keyed on (tenantId, reviewId).
func (h *Handlers) HandleReview(ctx context.Context, rv *normalize.NormalizedReview) Result {
	rc, err := h.resolver.ResolveCamera(ctx, rv.FrigateID, rv.Camera)
	if err != nil {
		return failure(classifyResolveErr(err), err)
	}

	var result Result
	txErr := h.store.Transaction(ctx, func(tx *gorm.DB) error {
		camera, err := h.store.GetCameraByID(ctx, tx, rc.CameraID)
		if err != nil {
			result = failure(ErrCameraResolutionFailed, err)
			return err
		}
		if camera.TenantID != rc.TenantID {
			err := fmt.Errorf("camera %s belongs to tenant %s, expected %s", rc.CameraID, camera.TenantID, rc.TenantID)
			result = failure(ErrCameraTenantMismatch, err)
			return err
		}

		row := &store.Review{
			ID:         store.NewID(),
			TenantID:   rc.TenantID,
			CameraID:   rc.CameraID,
			CameraName: rv.Camera,
			ReviewID:   rv.ReviewID,
			Severity:   string(rv.Severity),
			Retracted:  rv.Retracted,
			Timestamp:  unixToTime(rv.Timestamp),
			RawPayload: rv.Raw,
		}
		if err := store.UpsertReview(tx, row); err != nil {
			result = failure(ErrHandlerError, err)
			return err
		}
		result = Result{OK: true, Data: row}
		return nil
	})
	if txErr != nil && result.ErrorKind == "" {
		result = failure(ErrHandlerError, txErr)
	}
	return result
}

// HandleAvailability resolves only the tenant (availability pings are not
// camera-scoped) and appends an AvailabilityLog row.
func (h *Handlers) HandleAvailability(ctx context.Context, av *normalize.NormalizedAvailable) Result {
	tenant, err := h.resolver.ResolveTenant(ctx, av.FrigateID)
	if err != nil {
		return failure(classifyResolveErr(err), err)
	}

	var result Result
	txErr := h.store.Transaction(ctx, func(tx *gorm.DB) error {
		row := &store.AvailabilityLog{
			ID:         store.NewID(),
			TenantID:   tenant.ID,
			Available:  av.Available,
			Timestamp:  *unixToTime(&av.Timestamp),
			RawPayload: av.Raw,
		}
		if err := store.InsertAvailability(tx, row); err != nil {
			result = failure(ErrHandlerError, err)
			return err
		}
		result = Result{OK: true, Data: row}
		return nil
	})
	if txErr != nil && result.ErrorKind == "" {
		result = failure(ErrHandlerError, txErr)
	}
	return result
}

// classifyResolveErr maps an error returned by the resolver (already
// prefixed by resolve.go) back to one of this package's error kinds so
// callers never have to string-match.
func classifyResolveErr(err error) string {
	msg := err.Error()
	switch {
	case hasPrefix(msg, ErrCameraResolutionFailed):
		return ErrCameraResolutionFailed
	case hasPrefix(msg, ErrTenantResolutionFailed):
		return ErrTenantResolutionFailed
	default:
		return ErrHandlerError
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// unixToTime converts a nullable unix-seconds timestamp (as normalize
// produces them) into a nullable time.Time for storage. Fractional
// seconds survive the conversion.
func unixToTime(unixSeconds *float64) *time.Time {
	if unixSeconds == nil {
		return nil
	}
	whole := int64(*unixSeconds)
	frac := *unixSeconds - float64(whole)
	t := time.Unix(whole, int64(frac*float64(time.Second))).UTC()
	return &t
}
