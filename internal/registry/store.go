// Package registry persists the identity of every dynamic entity in SQLite
// and mirrors entity states outward (Home Assistant, or nothing). The store
// is the source of truth for "which entities exist": the coordinator loads
// it on startup and diffs each cycle's snapshot against it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"hypersense/internal/reconcile"
)

type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&EntityRecord{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load rebuilds the identity set of a wallet from persisted records.
func (s *Store) Load(ctx context.Context, wallet string) (map[reconcile.Key]struct{}, error) {
	var records []EntityRecord
	err := s.db.WithContext(ctx).
		Where("wallet = ?", strings.ToLower(wallet)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	keys := make(map[reconcile.Key]struct{}, len(records))
	for _, r := range records {
		keys[reconcile.Key{Kind: reconcile.Kind(r.Kind), NaturalID: r.NaturalID}] = struct{}{}
	}
	return keys, nil
}

// Upsert creates or refreshes a record by its identity triple. FirstSeen of
// an existing record is preserved.
func (s *Store) Upsert(ctx context.Context, rec *EntityRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	rec.Wallet = strings.ToLower(rec.Wallet)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet"}, {Name: "kind"}, {Name: "natural_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"unique_id", "name", "state", "attributes", "available", "last_seen",
		}),
	}).Create(rec).Error
}

// Retire removes a record. Retiring an already-absent identity is not an
// error: retirement must be idempotent across cycles.
func (s *Store) Retire(ctx context.Context, wallet string, key reconcile.Key) error {
	return s.db.WithContext(ctx).
		Where("wallet = ? AND kind = ? AND natural_id = ?",
			strings.ToLower(wallet), string(key.Kind), key.NaturalID).
		Delete(&EntityRecord{}).Error
}

// Get returns a record by identity, or nil when unknown.
func (s *Store) Get(ctx context.Context, wallet string, key reconcile.Key) (*EntityRecord, error) {
	var rec EntityRecord
	err := s.db.WithContext(ctx).
		Where("wallet = ? AND kind = ? AND natural_id = ?",
			strings.ToLower(wallet), string(key.Kind), key.NaturalID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record of a wallet ordered by kind then natural id.
func (s *Store) List(ctx context.Context, wallet string) ([]EntityRecord, error) {
	var records []EntityRecord
	err := s.db.WithContext(ctx).
		Where("wallet = ?", strings.ToLower(wallet)).
		Order("kind, natural_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
