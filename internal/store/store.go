// Package store provides subscriber directory backends for JobRelay.
//
// It includes an in-memory directory for tests and small deployments, and
// SQLite and PostgreSQL directories for persistence. Account credentials and
// billing state are owned by the user-management service, not stored here.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobrelay/jobrelay/internal/models"
)

// ErrSubscriberNotFound is returned when no subscriber matches the given ID.
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")

// Directory is the subscriber view consumed by the relay pipeline and the
// operational endpoints.
type Directory interface {
	// AddSubscriber stores a new subscriber, assigning an ID when absent.
	AddSubscriber(sub models.Subscriber) (models.Subscriber, error)

	// GetSubscriber returns the subscriber with the given ID, or nil.
	GetSubscriber(id string) (*models.Subscriber, error)

	// ListSubscribers returns all subscribers.
	ListSubscribers() ([]models.Subscriber, error)

	// ListActiveSubscribers returns subscribers eligible for notifications.
	ListActiveSubscribers() ([]models.Subscriber, error)

	// SetSubscriberActive activates or deactivates a subscriber.
	SetSubscriberActive(id string, active bool) error
}

// Opts holds configuration options for persistent stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// InMemoryStore is a mutex-guarded in-memory subscriber directory.
type InMemoryStore struct {
	mu   sync.RWMutex
	subs map[string]models.Subscriber
}

// NewInMemoryStore creates an empty in-memory directory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subs: make(map[string]models.Subscriber)}
}

// AddSubscriber stores a new subscriber, assigning an ID when absent.
func (s *InMemoryStore) AddSubscriber(sub models.Subscriber) (models.Subscriber, error) {
	if err := sub.Validate(); err != nil {
		return models.Subscriber{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.subs[sub.ID] = sub
	return sub, nil
}

// GetSubscriber returns the subscriber with the given ID, or nil.
func (s *InMemoryStore) GetSubscriber(id string) (*models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// ListSubscribers returns all subscribers, ordered by creation time.
func (s *InMemoryStore) ListSubscribers() ([]models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListActiveSubscribers returns subscribers eligible for notifications.
func (s *InMemoryStore) ListActiveSubscribers() ([]models.Subscriber, error) {
	all, err := s.ListSubscribers()
	if err != nil {
		return nil, err
	}
	active := make([]models.Subscriber, 0, len(all))
	for _, sub := range all {
		if sub.Active {
			active = append(active, sub)
		}
	}
	return active, nil
}

// SetSubscriberActive activates or deactivates a subscriber.
func (s *InMemoryStore) SetSubscriberActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	sub.Active = active
	sub.UpdatedAt = time.Now().UTC()
	s.subs[id] = sub
	return nil
}
