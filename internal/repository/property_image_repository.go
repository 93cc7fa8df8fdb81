package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PropertyImage references an uploaded image through an opaque blob
// handle. Actual bytes live in the private storage collaborator; the
// handle is never rendered as a public URL.
type PropertyImage struct {
	ID          uint64    `json:"id"`
	PropertyID  uint64    `json:"property_id"`
	BlobHandle  string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// PropertyImageRepo manages persistence for property image references.
type PropertyImageRepo struct {
	db *sql.DB
}

// NewPropertyImageRepo constructs a PropertyImageRepo.
func NewPropertyImageRepo(db *sql.DB) *PropertyImageRepo { return &PropertyImageRepo{db: db} }

// Create inserts an image reference for a property.
func (r *PropertyImageRepo) Create(ctx context.Context, img *PropertyImage) error {
	const q = `INSERT INTO property_images (property_id, blob_handle, content_type, size_bytes)
        VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, img.PropertyID, img.BlobHandle, img.ContentType, img.SizeBytes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	img.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM property_images WHERE id = ?`, img.ID).Scan(&img.CreatedAt)
}

// ListByProperty returns image references for a property, newest first.
func (r *PropertyImageRepo) ListByProperty(ctx context.Context, propertyID uint64) ([]PropertyImage, error) {
	const q = `SELECT id, property_id, blob_handle, content_type, size_bytes, created_at
        FROM property_images WHERE property_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PropertyImage
	for rows.Next() {
		var img PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.BlobHandle, &img.ContentType, &img.SizeBytes, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a single image reference scoped to its property.
func (r *PropertyImageRepo) GetByID(ctx context.Context, propertyID, imageID uint64) (*PropertyImage, error) {
	const q = `SELECT id, property_id, blob_handle, content_type, size_bytes, created_at
        FROM property_images WHERE id = ? AND property_id = ?`
	var img PropertyImage
	err := r.db.QueryRowContext(ctx, q, imageID, propertyID).Scan(
		&img.ID, &img.PropertyID, &img.BlobHandle, &img.ContentType, &img.SizeBytes, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &img, nil
}

// Delete removes an image reference and returns its blob handle so the
// caller can delete the stored bytes afterwards.
func (r *PropertyImageRepo) Delete(ctx context.Context, propertyID, imageID uint64) (string, error) {
	img, err := r.GetByID(ctx, propertyID, imageID)
	if err != nil {
		return "", err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM property_images WHERE id = ?`, img.ID); err != nil {
		return "", err
	}
	return img.BlobHandle, nil
}
