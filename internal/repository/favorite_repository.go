package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Favorite is a unique (user, property) pair, insertion-ordered by
// creation time.
type Favorite struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"user_id"`
	PropertyID uint64    `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FavoriteRepo manages persistence for favorites.
type FavoriteRepo struct {
	db *sql.DB
}

// NewFavoriteRepo constructs a FavoriteRepo with the given DB handle.
func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Toggle flips the favorite state of (user, property) and reports the
// resulting state. Toggling twice restores absence. The delete-first
// sequence runs in one transaction; a duplicate-key error on insert
// (error 1062, concurrent toggle won the race) is treated as the pair
// already existing, so the unique constraint is never violated upward.
func (r *FavoriteRepo) Toggle(ctx context.Context, userID, propertyID uint64) (isFavorite bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO favorites (user_id, property_id) VALUES (?, ?)`, userID, propertyID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = nil
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// IsFavorite reports whether the pair currently exists.
func (r *FavoriteRepo) IsFavorite(ctx context.Context, userID, propertyID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE user_id = ? AND property_id = ? LIMIT 1`,
		userID, propertyID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListProperties returns the user's favorited properties in insertion
// order, oldest first.
func (r *FavoriteRepo) ListProperties(ctx context.Context, userID uint64) ([]Property, error) {
	q := `SELECT ` + propertyColumns + `
        FROM favorites f
        JOIN properties p ON p.id = f.property_id
        WHERE f.user_id = ?
        ORDER BY f.created_at ASC, f.id ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Address, &p.District, &p.City,
			&p.DealType, &p.Status, &p.Rooms, &p.Area, &p.Price, &p.RealtorID,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
