// Package store provides subscriber directory backends for JobRelay.
//
// This file implements the PostgreSQL-backed directory.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/jobrelay/jobrelay/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a PostgreSQL-backed subscriber directory.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Directory.
var _ Directory = (*PostgresStore)(nil)

// NewPostgresStore connects to PostgreSQL with the configured DSN and runs
// migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("Postgres ping failed: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore ready")
	return &PostgresStore{db: db}, nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// AddSubscriber stores a new subscriber, assigning an ID when absent.
func (s *PostgresStore) AddSubscriber(sub models.Subscriber) (models.Subscriber, error) {
	if err := sub.Validate(); err != nil {
		return models.Subscriber{}, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO subscribers (id, name, email, number, location, range_miles, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.Name, sub.Email, sub.Number, sub.Location, sub.RangeMiles, sub.Active, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return models.Subscriber{}, fmt.Errorf("failed to insert subscriber %s: %w", sub.ID, err)
	}
	return sub, nil
}

// GetSubscriber returns the subscriber with the given ID, or nil.
func (s *PostgresStore) GetSubscriber(id string) (*models.Subscriber, error) {
	row := s.db.QueryRow(
		`SELECT id, name, email, number, location, range_miles, active, created_at, updated_at
		 FROM subscribers WHERE id = $1`, id)
	sub, err := scanSubscriberRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber %s: %w", id, err)
	}
	return &sub, nil
}

// ListSubscribers returns all subscribers, ordered by creation time.
func (s *PostgresStore) ListSubscribers() ([]models.Subscriber, error) {
	rows, err := s.db.Query(
		`SELECT id, name, email, number, location, range_miles, active, created_at, updated_at
		 FROM subscribers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	return collectSubscribers(rows)
}

// ListActiveSubscribers returns subscribers eligible for notifications.
func (s *PostgresStore) ListActiveSubscribers() ([]models.Subscriber, error) {
	rows, err := s.db.Query(
		`SELECT id, name, email, number, location, range_miles, active, created_at, updated_at
		 FROM subscribers WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscribers: %w", err)
	}
	return collectSubscribers(rows)
}

// SetSubscriberActive activates or deactivates a subscriber.
func (s *PostgresStore) SetSubscriberActive(id string, active bool) error {
	res, err := s.db.Exec(
		`UPDATE subscribers SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscriber %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
