// Package store provides subscriber directory backends for JobRelay.
//
// This file implements the SQLite-backed directory.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/jobrelay/jobrelay/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the permissions for created database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a SQLite-backed subscriber directory.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Directory.
var _ Directory = (*SQLiteStore)(nil)

// NewSQLiteStore creates a SQLite directory at the configured file path,
// creating the parent directory and running migrations as needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("SQLite ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddSubscriber stores a new subscriber, assigning an ID when absent.
func (s *SQLiteStore) AddSubscriber(sub models.Subscriber) (models.Subscriber, error) {
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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Email, sub.Number, sub.Location, sub.RangeMiles, sub.Active, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return models.Subscriber{}, fmt.Errorf("failed to insert subscriber %s: %w", sub.ID, err)
	}
	return sub, nil
}

// GetSubscriber returns the subscriber with the given ID, or nil.
func (s *SQLiteStore) GetSubscriber(id string) (*models.Subscriber, error) {
	row := s.db.QueryRow(
		`SELECT id, name, email, number, location, range_miles, active, created_at, updated_at
		 FROM subscribers WHERE id = ?`, id)
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
func (s *SQLiteStore) ListSubscribers() ([]models.Subscriber, error) {
	rows, err := s.db.Query(
		`SELECT id, name, email, number, location, range_miles, active, created_at, updated_at
		 FROM subscribers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	return collectSubscribers(rows)
}

// ListActiveSubscribers returns subscribers eligible for notifications.
func (s *SQLiteStore) ListActiveSubscribers() ([]models.Subscriber, error) {
	rows, err := s.db.Query(
		`SELECT id, name, email, number, location, range_miles, active, created_at, updated_at
		 FROM subscribers WHERE active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscribers: %w", err)
	}
	return collectSubscribers(rows)
}

// SetSubscriberActive activates or deactivates a subscriber.
func (s *SQLiteStore) SetSubscriberActive(id string, active bool) error {
	res, err := s.db.Exec(
		`UPDATE subscribers SET active = ?, updated_at = ? WHERE id = ?`,
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
