package store

import (
	"errors"

	"funnelbot/funnel"

	"gorm.io/gorm"
)

// Store implements the funnel.Store port over Postgres.
type Store struct {
	db *gorm.DB
}

var _ funnel.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for read-only consumers (analytics).
func (s *Store) DB() *gorm.DB { return s.db }

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
