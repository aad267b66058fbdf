package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jobrelay/jobrelay/internal/models"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// come as URLs (postgres://) or keyword strings (host=... user=...); anything
// else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// rowScanner abstracts sql.Row and sql.Rows for the subscriber scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSubscriberRow scans one subscriber from a row in column order.
func scanSubscriberRow(row rowScanner) (models.Subscriber, error) {
	var sub models.Subscriber
	err := row.Scan(
		&sub.ID, &sub.Name, &sub.Email, &sub.Number, &sub.Location,
		&sub.RangeMiles, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt,
	)
	return sub, err
}

// collectSubscribers drains rows into a slice, closing them when done.
func collectSubscribers(rows *sql.Rows) ([]models.Subscriber, error) {
	defer rows.Close()
	var subs []models.Subscriber
	for rows.Next() {
		sub, err := scanSubscriberRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriber rows: %w", err)
	}
	return subs, nil
}
