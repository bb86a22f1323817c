package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"duty-planner/internal/metrics"
)

// Store aggregates the repositories over one connection or transaction.
type Store struct {
	db *gorm.DB

	Templates *TemplateRepository
	Events    *EventRepository
	Tags      *TagRepository
	Members   *MemberRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Templates: NewTemplateRepository(db),
		Events:    NewEventRepository(db),
		Tags:      NewTagRepository(db),
		Members:   NewMemberRepository(db),
	}
}

// Transaction runs fn against a Store bound to a new transaction. Called on a
// transactional Store it nests through a savepoint.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	defer observeDB("db.transaction")()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB("db.healthcheck")()
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func observeDB(operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveDBLatency(operation, start)
	}
}
