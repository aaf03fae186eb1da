// Package store is the thin adapter over the relational driver exposing
// the upsert operations the ingestion core needs (spec.md §4.5). It keeps
// the teacher's gorm idiom (AutoMigrate, Create, clause.OnConflict)
// but drives gorm.io/driver/postgres instead of sqlite, since the store is
// now a shared multi-tenant Postgres instance.
package store

import (
	"encoding/json"
	"time"
)

// Tenant is the isolation unit in the schema: one row per Frigate instance.
// Its ID is externally assigned — the frigate id extracted from the MQTT
// topic, never a generated surrogate.
type Tenant struct {
	ID        string `gorm:"primaryKey;type:text"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (Tenant) TableName() string { return "tenants" }

// Camera is a logical camera within a tenant, keyed by its Frigate-side
// name. (tenantId, key) is unique.
type Camera struct {
	ID        string `gorm:"primaryKey;type:text"`
	TenantID  string `gorm:"not null;uniqueIndex:idx_camera_tenant_key;index"`
	Tenant    Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Key       string `gorm:"not null;uniqueIndex:idx_camera_tenant_key"`
	Label     string `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (Camera) TableName() string { return "cameras" }

// Event is a detection record with a new/update/end lifecycle type.
// (tenantId, frigateId) is unique; rawPayload always survives normalization
// losses as the audit trail.
type Event struct {
	ID          string `gorm:"primaryKey;type:text"`
	TenantID    string `gorm:"not null;uniqueIndex:idx_event_tenant_frigate;index"`
	Tenant      Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	CameraID    string `gorm:"not null;index"`
	Camera      Camera `gorm:"foreignKey:CameraID;constraint:OnDelete:CASCADE"`
	FrigateID   string `gorm:"not null;uniqueIndex:idx_event_tenant_frigate"`
	Type        string `gorm:"not null"`
	Label       string `gorm:"not null"`
	HasSnapshot bool   `gorm:"not null;default:false"`
	HasClip     bool   `gorm:"not null;default:false"`
	StartTime   *float64
	EndTime     *float64
	RawPayload  json.RawMessage `gorm:"type:jsonb"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime;index"`
}

func (Event) TableName() string { return "events" }

// Review is a human-facing annotation or alert on a detection.
// (tenantId, reviewId) is unique.
type Review struct {
	ID         string `gorm:"primaryKey;type:text"`
	TenantID   string `gorm:"not null;uniqueIndex:idx_review_tenant_reviewid;index"`
	Tenant     Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	CameraID   string `gorm:"not null;index"`
	Camera     Camera `gorm:"foreignKey:CameraID;constraint:OnDelete:CASCADE"`
	ReviewID   string `gorm:"not null;uniqueIndex:idx_review_tenant_reviewid"`
	CameraName string `gorm:"not null"`
	Severity   string `gorm:"not null"`
	Retracted  bool   `gorm:"not null;default:false"`
	Timestamp  *time.Time
	RawPayload json.RawMessage `gorm:"type:jsonb"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime;index"`
}

func (Review) TableName() string { return "reviews" }

// AvailabilityLog is an append-only record of a Frigate instance's
// online/offline signal. No unique key beyond ID: status pings accumulate.
type AvailabilityLog struct {
	ID         string `gorm:"primaryKey;type:text"`
	TenantID   string `gorm:"not null;index"`
	Tenant     Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	Available  bool   `gorm:"not null"`
	Timestamp  time.Time `gorm:"not null"`
	RawPayload json.RawMessage `gorm:"type:jsonb"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime;index"`
}

func (AvailabilityLog) TableName() string { return "availability_logs" }

// Models lists every table for AutoMigrate, in dependency order.
func Models() []any {
	return []any{&Tenant{}, &Camera{}, &Event{}, &Review{}, &AvailabilityLog{}}
}
