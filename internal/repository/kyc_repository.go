package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// KYC profile status values.
const (
	KYCPending  = "pending"
	KYCApproved = "approved"
	KYCRejected = "rejected"
)

// KYCProfile is one-to-one with a user. The three document slots hold
// opaque blob handles into private storage; no public URLs exist. Once
// approved, the profile is immutable from the subject user's side and
// only staff can touch it through the review path.
type KYCProfile struct {
	ID              uint64     `json:"id"`
	UserID          uint64     `json:"user_id"`
	DocFrontHandle  *string    `json:"-"`
	DocBackHandle   *string    `json:"-"`
	SelfieHandle    *string    `json:"-"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	ReviewedBy      *uint64    `json:"reviewed_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OwnerID resolves to the subject user. Staff override is layered on
// top by the guard, not modeled as a second owner.
func (k *KYCProfile) OwnerID() uint64 { return k.UserID }

const kycColumns = `id, user_id, doc_front_handle, doc_back_handle, selfie_handle,
        status, rejection_reason, reviewed_at, reviewed_by, created_at, updated_at`

// KYCRepo manages persistence for KYC profiles.
type KYCRepo struct {
	db *sql.DB
}

// NewKYCRepo constructs a KYCRepo with the given DB handle.
func NewKYCRepo(db *sql.DB) *KYCRepo { return &KYCRepo{db: db} }

func scanKYC(row interface{ Scan(...any) error }, k *KYCProfile) error {
	return row.Scan(
		&k.ID, &k.UserID, &k.DocFrontHandle, &k.DocBackHandle, &k.SelfieHandle,
		&k.Status, &k.RejectionReason, &k.ReviewedAt, &k.ReviewedBy, &k.CreatedAt, &k.UpdatedAt)
}

// GetByUser fetches the profile belonging to a user.
func (r *KYCRepo) GetByUser(ctx context.Context, userID uint64) (*KYCProfile, error) {
	q := `SELECT ` + kycColumns + ` FROM kyc_profiles WHERE user_id = ?`
	var k KYCProfile
	if err := scanKYC(r.db.QueryRowContext(ctx, q, userID), &k); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKYCProfileNotFound
		}
		return nil, err
	}
	return &k, nil
}

// GetByID fetches a profile by its row ID (staff review path).
func (r *KYCRepo) GetByID(ctx context.Context, id uint64) (*KYCProfile, error) {
	q := `SELECT ` + kycColumns + ` FROM kyc_profiles WHERE id = ?`
	var k KYCProfile
	if err := scanKYC(r.db.QueryRowContext(ctx, q, id), &k); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKYCProfileNotFound
		}
		return nil, err
	}
	return &k, nil
}

// EnsureForUser returns the user's profile, creating an empty pending
// one on first access.
func (r *KYCRepo) EnsureForUser(ctx context.Context, userID uint64) (*KYCProfile, error) {
	k, err := r.GetByUser(ctx, userID)
	if err == nil {
		return k, nil
	}
	if !errors.Is(err, ErrKYCProfileNotFound) {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO kyc_profiles (user_id, status) VALUES (?, ?)`, userID, KYCPending); err != nil {
		// Concurrent first access can insert the row between the lookup
		// and this insert; fall through to re-read either way.
		if _, reErr := r.GetByUser(ctx, userID); reErr != nil {
			return nil, err
		}
	}
	return r.GetByUser(ctx, userID)
}

// SetDocument stores a blob handle into one of the three slots and
// resets a rejected profile back to pending so it re-enters review.
// The slot must be doc_front, doc_back or selfie.
func (r *KYCRepo) SetDocument(ctx context.Context, userID uint64, slot, handle string) error {
	var col string
	switch slot {
	case "doc_front":
		col = "doc_front_handle"
	case "doc_back":
		col = "doc_back_handle"
	case "selfie":
		col = "selfie_handle"
	default:
		return NewValidationError("slot", "must be doc_front, doc_back or selfie")
	}
	q := `UPDATE kyc_profiles
        SET ` + col + ` = ?,
            status = IF(status = ?, ?, status),
            rejection_reason = IF(status = ?, '', rejection_reason),
            updated_at = CURRENT_TIMESTAMP
        WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, q, handle, KYCRejected, KYCPending, KYCRejected, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrKYCProfileNotFound
	}
	return nil
}

// Review records a staff decision. Approvals clear any previous
// rejection reason; rejections require one (validated by the handler).
func (r *KYCRepo) Review(ctx context.Context, id uint64, status, reason string, reviewerID uint64) (*KYCProfile, error) {
	if status != KYCApproved && status != KYCRejected {
		return nil, NewValidationError("status", "must be approved or rejected")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE kyc_profiles
         SET status = ?, rejection_reason = ?, reviewed_at = CURRENT_TIMESTAMP, reviewed_by = ?,
             updated_at = CURRENT_TIMESTAMP
         WHERE id = ?`,
		status, reason, reviewerID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// ListPending returns profiles awaiting review, oldest first.
func (r *KYCRepo) ListPending(ctx context.Context, limit, offset int) ([]KYCProfile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + kycColumns + ` FROM kyc_profiles
        WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, KYCPending, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KYCProfile
	for rows.Next() {
		var k KYCProfile
		if err := scanKYC(rows, &k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
