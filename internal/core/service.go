// Package core implements the transactional CRUD service, reference guard,
// pagination, and statistics over the campuscore entity store.
package core

import (
	"context"

	"campuscore/pkg/domain"
)

// Publisher receives entity-change notifications after a transaction commits.
// Implementations must not block; delivery is fire-and-forget.
type Publisher interface {
	Publish(entity domain.EntityType, action domain.Action, data any)
}

// Service exposes higher-level transactional operations for the campuscore
// schema. All mutations run through the store's serialized transactions, so
// reference checks and the mutations they guard are atomic.
type Service struct {
	store     domain.PersistentStore
	logger    Logger
	publisher Publisher
}

// Option customizes service construction.
type Option func(*Service)

// WithLogger installs a structured logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher installs a change-event publisher invoked after each commit.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{store: store, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// runAndPublish executes fn transactionally, then fans committed changes out
// to the publisher. Events fire only after the commit succeeded.
func (s *Service) runAndPublish(ctx context.Context, fn func(domain.Transaction) error) error {
	changes, err := s.store.RunInTransaction(ctx, fn)
	if err != nil {
		return err
	}
	s.publishChanges(changes)
	return nil
}

func (s *Service) publishChanges(changes []domain.Change) {
	if s.publisher == nil {
		return
	}
	for _, change := range changes {
		payload := change.After
		if payload == nil {
			payload = change.Before
		}
		s.publisher.Publish(change.Entity, change.Action, payload)
	}
}
