// Package resolve maps (frigateId, cameraName) pairs to (tenantId,
// cameraId), auto-provisioning both rows the first time they're seen.
// Races are expected and tolerated: concurrent handlers may both try to
// insert the same tenant or camera; the unique constraint plus a
// retry-read resolves it, the way the teacher's
// VirtualDeviceHistoryRepository.getOrCreateDeviceID tolerates concurrent
// FirstOrCreate calls.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/alufers/frigate-ingestor/internal/store"
)

// Resolver owns tenant/camera auto-provisioning.
type Resolver struct {
	store *store.Store
}

// New constructs a Resolver over the given store.
func New(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// ResolveTenant finds or creates the Tenant row for frigateID.
func (r *Resolver) ResolveTenant(ctx context.Context, frigateID string) (*store.Tenant, error) {
	tenant, err := r.store.GetTenant(ctx, frigateID)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("tenant_resolution_failed: %w", err)
	}

	created := &store.Tenant{
		ID:   frigateID,
		Name: "Frigate " + frigateID,
	}
	if insertErr := r.store.InsertTenant(ctx, created); insertErr != nil {
		if !store.IsUniqueViolation(insertErr) {
			return nil, fmt.Errorf("tenant_resolution_failed: %w", insertErr)
		}
		// Lost the race — another caller created it first; re-read.
		tenant, err = r.store.GetTenant(ctx, frigateID)
		if err != nil {
			return nil, fmt.Errorf("tenant_resolution_failed: %w", err)
		}
		return tenant, nil
	}
	return created, nil
}

// ResolvedCamera is the (cameraId, tenantId) pair returned by
// ResolveCamera.
type ResolvedCamera struct {
	CameraID string
	TenantID string
}

// ResolveCamera resolves the tenant for frigateID, then finds or creates
// the Camera keyed by (tenantId, key=cameraName).
func (r *Resolver) ResolveCamera(ctx context.Context, frigateID, cameraName string) (*ResolvedCamera, error) {
	tenant, err := r.ResolveTenant(ctx, frigateID)
	if err != nil {
		return nil, err
	}

	camera, err := r.store.GetCameraByKey(ctx, tenant.ID, cameraName)
	if err == nil {
		return &ResolvedCamera{CameraID: camera.ID, TenantID: tenant.ID}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("camera_resolution_failed: %w", err)
	}

	created := &store.Camera{
		ID:       store.NewID(),
		TenantID: tenant.ID,
		Key:      cameraName,
		Label:    cameraName,
	}
	if insertErr := r.store.InsertCamera(ctx, created); insertErr != nil {
		if !store.IsUniqueViolation(insertErr) {
			return nil, fmt.Errorf("camera_resolution_failed: %w", insertErr)
		}
		camera, err = r.store.GetCameraByKey(ctx, tenant.ID, cameraName)
		if err != nil {
			return nil, fmt.Errorf("camera_resolution_failed: %w", err)
		}
		return &ResolvedCamera{CameraID: camera.ID, TenantID: tenant.ID}, nil
	}
	return &ResolvedCamera{CameraID: created.ID, TenantID: tenant.ID}, nil
}
