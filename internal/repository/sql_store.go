package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/warrantyflow/internal/database"
)

// SQLDocumentStore keeps documents as rows of the documents table.
type SQLDocumentStore struct {
	db     *sqlx.DB
	driver database.Driver
	now    func() time.Time
}

// NewSQLDocumentStore wraps db. The documents table must exist (see database.EnsureSchema).
func NewSQLDocumentStore(db *sqlx.DB, driver database.Driver) *SQLDocumentStore {
	return &SQLDocumentStore{db: db, driver: driver, now: time.Now}
}

// Load decodes the named row into v.
func (s *SQLDocumentStore) Load(ctx context.Context, name string, v any) (bool, error) {
	if err := ValidateDocumentName(name); err != nil {
		return false, err
	}
	var body string
	query := s.driver.ConvertPlaceholders(`SELECT body FROM documents WHERE name = ?`)
	err := s.db.GetContext(ctx, &body, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save upserts the named row.
func (s *SQLDocumentStore) Save(ctx context.Context, name string, v any) error {
	if err := ValidateDocumentName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if _, err := s.db.ExecContext(ctx, s.driver.UpsertDocumentQuery(), name, string(raw), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
