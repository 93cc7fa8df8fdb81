package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SavedSearch stores a user-authored filter dictionary verbatim. The
// dictionary is schema-free at rest; keys are interpreted only when the
// search is run through the query translator.
type SavedSearch struct {
	ID        uint64         `json:"id"`
	UserID    uint64         `json:"user_id"`
	Name      string         `json:"name"`
	Query     map[string]any `json:"query"`
	CreatedAt time.Time      `json:"created_at"`
}

// OwnerID resolves the controlling principal for the ownership guard.
func (s *SavedSearch) OwnerID() uint64 { return s.UserID }

// SavedSearchRepo manages persistence for saved searches. The query
// dictionary round-trips through a JSON column.
type SavedSearchRepo struct {
	db *sql.DB
}

// NewSavedSearchRepo constructs a SavedSearchRepo.
func NewSavedSearchRepo(db *sql.DB) *SavedSearchRepo { return &SavedSearchRepo{db: db} }

// Create inserts a saved search for a user.
func (r *SavedSearchRepo) Create(ctx context.Context, s *SavedSearch) error {
	if s.Query == nil {
		s.Query = map[string]any{}
	}
	raw, err := json.Marshal(s.Query)
	if err != nil {
		return NewValidationError("query", "must be an object")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_searches (user_id, name, query) VALUES (?, ?, ?)`,
		s.UserID, s.Name, raw)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM saved_searches WHERE id = ?`, s.ID).Scan(&s.CreatedAt)
}

// GetByID retrieves a saved search by its ID.
func (r *SavedSearchRepo) GetByID(ctx context.Context, id uint64) (*SavedSearch, error) {
	var (
		s   SavedSearch
		raw []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, query, created_at FROM saved_searches WHERE id = ?`,
		id).Scan(&s.ID, &s.UserID, &s.Name, &raw, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSavedSearchNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.Query); err != nil {
		// A corrupted dictionary degrades to an empty one rather than
		// failing the whole request.
		s.Query = map[string]any{}
	}
	return &s, nil
}

// ListByUser returns the user's saved searches, newest first.
func (r *SavedSearchRepo) ListByUser(ctx context.Context, userID uint64) ([]SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, query, created_at FROM saved_searches
         WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SavedSearch
	for rows.Next() {
		var (
			s   SavedSearch
			raw []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &raw, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &s.Query); err != nil {
			s.Query = map[string]any{}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a saved search by ID.
func (r *SavedSearchRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSavedSearchNotFound
	}
	return nil
}
