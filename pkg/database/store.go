// Copyright 2024-2026 Aiku AI

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("mapping not found")
	ErrEmptyQuery = errors.New("refusing to run an unconstrained mapping query")
	ErrStorage    = errors.New("mapping storage failure")
)

// MappingStore is the durable storage of channel mappings.
type MappingStore interface {
	Create(ctx context.Context, m *Mapping) error
	Find(ctx context.Context, q Query) (*Mapping, error)
	FindAll(ctx context.Context) ([]Mapping, error)
	Destroy(ctx context.Context, q Query) (int64, error)
	Update(ctx context.Context, q Query, p Patch) (int64, error)
}

// Store is the gorm implementation of MappingStore.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

var _ MappingStore = (*Store)(nil)

// Open opens (creating if needed) the sqlite database at path and migrates
// the schema. Use "file::memory:" for a throwaway database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	log = log.With().Str("component", "database").Logger()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	s := &Store{db: db, log: log}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate brings the schema up to date.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Mapping{}); err != nil {
		return fmt.Errorf("failed to migrate mappings: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, m *Mapping) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("%w: failed to insert mapping: %w", ErrStorage, err)
	}
	s.log.Debug().
		Str("discord_channel", m.DiscordChannel).
		Str("revolt_channel", m.RevoltChannel).
		Msg("Stored mapping")
	return nil
}

func (s *Store) Find(ctx context.Context, q Query) (*Mapping, error) {
	if q.IsZero() {
		return nil, ErrEmptyQuery
	}
	var m Mapping
	err := q.apply(s.db.WithContext(ctx)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: failed to select mapping: %w", ErrStorage, err)
	}
	return &m, nil
}

func (s *Store) FindAll(ctx context.Context) ([]Mapping, error) {
	var mappings []Mapping
	if err := s.db.WithContext(ctx).Order("id").Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to select mappings: %w", ErrStorage, err)
	}
	return mappings, nil
}

func (s *Store) Destroy(ctx context.Context, q Query) (int64, error) {
	if q.IsZero() {
		return 0, ErrEmptyQuery
	}
	res := q.apply(s.db.WithContext(ctx)).Delete(&Mapping{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: failed to delete mapping: %w", ErrStorage, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) Update(ctx context.Context, q Query, p Patch) (int64, error) {
	if q.IsZero() {
		return 0, ErrEmptyQuery
	}
	if p.IsZero() {
		return 0, nil
	}
	res := q.apply(s.db.WithContext(ctx).Model(&Mapping{})).Updates(p.columns())
	if res.Error != nil {
		return 0, fmt.Errorf("%w: failed to update mapping: %w", ErrStorage, res.Error)
	}
	return res.RowsAffected, nil
}
