package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store wraps the gorm connection and exposes the handful of primitive
// operations the resolver and persistence handlers need. It never embeds
// upsert *policy* (retry-on-conflict, cross-tenant verification) — that
// belongs to the callers in internal/resolve and internal/persist.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres, probes it with a trivial query, and runs
// AutoMigrate for the five domain tables. Mirrors the teacher's
// models.go AutoMigrateModels, pointed at postgres instead of sqlite.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store_unreachable: %w", err)
	}

	s := &Store{db: db}
	if err := s.Ping(context.Background()); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("store_unreachable: schema migration failed: %w", err)
	}
	return s, nil
}

// New wraps an already-open gorm connection. Production code uses Open;
// tests use this to point a Store at an in-memory sqlite database so the
// resolver/persistence logic can run without a live Postgres instance.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping probes the connection with a trivial query, per spec.md §4.6 boot
// step 2.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store_unreachable: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("store_unreachable: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewID mints a new surrogate row ID. UUIDv7 is time-sortable, matching
// the teacher's models.go GenerateUUIDv7 convention.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}

// ErrNotFound is returned by the Get* primitives when no row matches.
var ErrNotFound = gorm.ErrRecordNotFound

// GetTenant looks up a tenant by its externally-assigned id (the frigate
// id). Returns ErrNotFound if absent.
func (s *Store) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTenant inserts a new tenant row. Returns a unique-constraint error
// if another caller raced us to create the same id — the resolver is
// responsible for tolerating that and re-reading.
func (s *Store) InsertTenant(ctx context.Context, t *Tenant) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// GetCameraByKey looks up a camera by (tenantId, key). Returns ErrNotFound
// if absent.
func (s *Store) GetCameraByKey(ctx context.Context, tenantID, key string) (*Camera, error) {
	var c Camera
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND key = ?", tenantID, key).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCameraByID re-reads a camera by its surrogate id — used inside the
// event-persistence transaction to verify the camera's tenant hasn't
// shifted out from under a concurrent race (spec.md §4.5 step 3).
func (s *Store) GetCameraByID(ctx context.Context, tx *gorm.DB, id string) (*Camera, error) {
	db := s.db
	if tx != nil {
		db = tx
	}
	var c Camera
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCamera inserts a new camera row. Returns a unique-constraint error
// on a (tenantId, key) race — the resolver tolerates and re-reads.
func (s *Store) InsertCamera(ctx context.Context, c *Camera) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// Transaction runs fn inside a single database transaction, matching
// spec.md §4.5's "every handler runs inside a single store transaction".
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// IsUniqueViolation reports whether err looks like a unique-constraint
// violation rather than some other, unrecoverable store error. Postgres
// via pgx surfaces SQLSTATE 23505 for this; gorm also returns
// gorm.ErrDuplicatedKey for drivers that translate it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return pgUniqueViolation(err)
}

// UpsertEvent inserts an Event row, or on (tenantId, frigateId) conflict
// updates type/label/hasSnapshot/hasClip/rawPayload unconditionally and
// startTime/endTime only when the incoming value is non-null (never clobber
// a known timestamp with null). A non-null startTime on a later message
// always replaces the stored one, even when it differs from it, so a later
// update's startTime can overwrite an earlier, truer one.
func UpsertEvent(tx *gorm.DB, ev *Event) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "frigate_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"type":         gorm.Expr("excluded.type"),
			"label":        gorm.Expr("excluded.label"),
			"has_snapshot": gorm.Expr("excluded.has_snapshot"),
			"has_clip":     gorm.Expr("excluded.has_clip"),
			"start_time":   gorm.Expr("COALESCE(excluded.start_time, events.start_time)"),
			"end_time":     gorm.Expr("COALESCE(excluded.end_time, events.end_time)"),
			"raw_payload":  gorm.Expr("excluded.raw_payload"),
		}),
	}).Create(ev).Error
}

// UpsertReview inserts a Review row, or on (tenantId, reviewId) conflict
// updates severity/retracted/rawPayload unconditionally and timestamp only
// when the incoming value is non-null.
func UpsertReview(tx *gorm.DB, rv *Review) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "review_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"severity":    gorm.Expr("excluded.severity"),
			"retracted":   gorm.Expr("excluded.retracted"),
			"timestamp":   gorm.Expr("COALESCE(excluded.timestamp, reviews.timestamp)"),
			"raw_payload": gorm.Expr("excluded.raw_payload"),
		}),
	}).Create(rv).Error
}

// InsertAvailability inserts an append-only AvailabilityLog row — no
// conflict key, each ping is distinct.
func InsertAvailability(tx *gorm.DB, av *AvailabilityLog) error {
	return tx.Create(av).Error
}
