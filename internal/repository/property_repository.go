// Package repository contains data access logic for the brokerage
// entities. This file defines the Property model and its repository.
// Listing queries never apply authorization on their own: the caller
// passes a policy predicate that scopes which rows are visible.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/LostFrxks/homy/internal/policy"
)

// Property deal types.
const (
	DealTypeSale = "sale"
	DealTypeRent = "rent"
)

// Property represents a listed object owned by exactly one realtor.
// The realtor reference is immutable after creation.
type Property struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	District    string    `json:"district"`
	City        string    `json:"city"`
	DealType    string    `json:"deal_type"`
	Status      string    `json:"status"`
	Rooms       int64     `json:"rooms"`
	Area        float64   `json:"area"`
	Price       float64   `json:"price"`
	RealtorID   uint64    `json:"realtor_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnerID resolves the controlling principal for the ownership guard.
func (p *Property) OwnerID() uint64 { return p.RealtorID }

var dealTypes = map[string]bool{DealTypeSale: true, DealTypeRent: true}

var propertyStatuses = map[string]bool{
	policy.StatusDraft:    true,
	policy.StatusActive:   true,
	policy.StatusReserved: true,
	policy.StatusSold:     true,
	policy.StatusArchived: true,
}

// Validate checks the field invariants: required non-empty text fields,
// enum membership and non-negative numerics. All failures are
// field-attributed and collected into a single ValidationError.
func (p *Property) Validate() *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		fields["title"] = "required"
	}
	if strings.TrimSpace(p.Address) == "" {
		fields["address"] = "required"
	}
	if strings.TrimSpace(p.District) == "" {
		fields["district"] = "required"
	}
	if !dealTypes[p.DealType] {
		fields["deal_type"] = "must be sale or rent"
	}
	if !propertyStatuses[p.Status] {
		fields["status"] = "unknown status"
	}
	if p.Rooms < 0 {
		fields["rooms"] = "must not be negative"
	}
	if p.Area < 0 {
		fields["area"] = "must not be negative"
	}
	if p.Price < 0 {
		fields["price"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// PropertySearch defines filters, ordering and pagination for the
// catalog listing. The visibility predicate is supplied separately.
type PropertySearch struct {
	DealType string
	District string
	City     string
	Rooms    *int64
	PriceMin *float64
	PriceMax *float64
	AreaMin  *float64
	AreaMax  *float64
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

// orderings whitelists user-supplied ordering keys against column names.
var orderings = map[string]string{
	"created_at":  "p.created_at ASC",
	"-created_at": "p.created_at DESC",
	"price":       "p.price ASC",
	"-price":      "p.price DESC",
	"area":        "p.area ASC",
	"-area":       "p.area DESC",
	"rooms":       "p.rooms ASC",
	"-rooms":      "p.rooms DESC",
	"id":          "p.id ASC",
	"-id":         "p.id DESC",
}

const propertyColumns = `p.id, p.title, p.description, p.address, p.district, p.city,
        p.deal_type, p.status, p.rooms, p.area, p.price, p.realtor_id, p.created_at, p.updated_at`

// PropertyRepo manages persistence for properties.
type PropertyRepo struct {
	db *sql.DB
}

// NewPropertyRepo constructs a PropertyRepo with the given DB handle.
func NewPropertyRepo(db *sql.DB) *PropertyRepo { return &PropertyRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need transactions
// spanning multiple repositories.
func (r *PropertyRepo) DB() *sql.DB { return r.db }

// Create inserts a new property and assigns the generated ID plus the
// DB-default timestamps back to the struct.
func (r *PropertyRepo) Create(ctx context.Context, p *Property) error {
	const q = `INSERT INTO properties
        (title, description, address, district, city, deal_type, status, rooms, area, price, realtor_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.Title, p.Description, p.Address, p.District, p.City,
		p.DealType, p.Status, p.Rooms, p.Area, p.Price, p.RealtorID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	sel := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.id = ?`
	return r.db.QueryRowContext(ctx, sel, p.ID).Scan(
		&p.ID, &p.Title, &p.Description, &p.Address, &p.District, &p.City,
		&p.DealType, &p.Status, &p.Rooms, &p.Area, &p.Price, &p.RealtorID,
		&p.CreatedAt, &p.UpdatedAt)
}

// GetByID retrieves a property by its ID. It returns
// ErrPropertyNotFound if there is no matching row.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (*Property, error) {
	q := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.id = ?`
	var p Property
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.Address, &p.District, &p.City,
		&p.DealType, &p.Status, &p.Rooms, &p.Area, &p.Price, &p.RealtorID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Search lists properties matching the visibility predicate and the
// request filters, with a total count for pagination.
func (r *PropertyRepo) Search(ctx context.Context, scope policy.Predicate, s PropertySearch) ([]Property, int64, error) {
	pred := scope
	if s.DealType != "" {
		pred.And("p.deal_type = ?", s.DealType)
	}
	if s.District != "" {
		pred.And("p.district = ?", s.District)
	}
	if s.City != "" {
		pred.And("p.city = ?", s.City)
	}
	if s.Rooms != nil {
		pred.And("p.rooms = ?", *s.Rooms)
	}
	if s.PriceMin != nil {
		pred.And("p.price >= ?", *s.PriceMin)
	}
	if s.PriceMax != nil {
		pred.And("p.price <= ?", *s.PriceMax)
	}
	if s.AreaMin != nil {
		pred.And("p.area >= ?", *s.AreaMin)
	}
	if s.AreaMax != nil {
		pred.And("p.area <= ?", *s.AreaMax)
	}
	if s.Search != "" {
		term := "%" + strings.ToLower(s.Search) + "%"
		pred.And("(LOWER(p.title) LIKE ? OR LOWER(p.description) LIKE ? OR LOWER(p.address) LIKE ? OR LOWER(p.district) LIKE ?)",
			term, term, term, term)
	}

	order, ok := orderings[s.Ordering]
	if !ok {
		order = "p.created_at DESC"
	}
	return r.runSearch(ctx, pred, order, s.Limit, s.Offset)
}

// SearchByPredicate runs a prebuilt predicate (the saved-search
// translator output) ordered by identifier descending, using the same
// pagination as the live catalog.
func (r *PropertyRepo) SearchByPredicate(ctx context.Context, pred policy.Predicate, limit, offset int) ([]Property, int64, error) {
	return r.runSearch(ctx, pred, "p.id DESC", limit, offset)
}

func (r *PropertyRepo) runSearch(ctx context.Context, pred policy.Predicate, order string, limit, offset int) ([]Property, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM properties p WHERE ` + pred.Clause()
	if err := r.db.QueryRowContext(ctx, countSQL, pred.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + propertyColumns + `
        FROM properties p
        WHERE ` + pred.Clause() + `
        ORDER BY ` + order + `
        LIMIT ? OFFSET ?`
	args := append(append([]any{}, pred.Args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Property, 0, limit)
	for rows.Next() {
		var p Property
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Address, &p.District, &p.City,
			&p.DealType, &p.Status, &p.Rooms, &p.Area, &p.Price, &p.RealtorID,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists mutable fields of a property. The realtor reference
// is deliberately absent from the SET list: ownership never changes.
// It returns ErrNoChange when every field already holds the given
// value, and sql.ErrNoRows when the row is gone.
func (r *PropertyRepo) Update(ctx context.Context, p *Property) error {
	const q = `UPDATE properties p
        SET p.title = ?, p.description = ?, p.address = ?, p.district = ?, p.city = ?,
            p.deal_type = ?, p.status = ?, p.rooms = ?, p.area = ?, p.price = ?,
            p.updated_at = CURRENT_TIMESTAMP
        WHERE p.id = ?
          AND (p.title <> ? OR p.description <> ? OR p.address <> ? OR p.district <> ? OR p.city <> ?
               OR p.deal_type <> ? OR p.status <> ? OR p.rooms <> ? OR p.area <> ? OR p.price <> ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.Title, p.Description, p.Address, p.District, p.City,
		p.DealType, p.Status, p.Rooms, p.Area, p.Price,
		p.ID,
		p.Title, p.Description, p.Address, p.District, p.City,
		p.DealType, p.Status, p.Rooms, p.Area, p.Price,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM properties WHERE id = ? LIMIT 1`, p.ID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return err
	}
	return ErrNoChange
}

// Delete removes a property and its image rows inside one transaction.
// Only draft properties may be deleted; deletion is blocked while deals
// reference the property (protect-on-delete). The blob handles of the
// removed images are returned so the caller can clean up storage.
func (r *PropertyRepo) Delete(ctx context.Context, id uint64) (handles []string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM properties WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	if status != policy.StatusDraft {
		return nil, NewValidationError("status", "only draft properties can be deleted")
	}

	var dealCount int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals WHERE property_id = ?`, id).Scan(&dealCount); err != nil {
		return nil, err
	}
	if dealCount > 0 {
		return nil, ErrConflict
	}

	rows, err := tx.QueryContext(ctx, `SELECT blob_handle FROM property_images WHERE property_id = ?`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var h string
		if err = rows.Scan(&h); err != nil {
			rows.Close()
			return nil, err
		}
		handles = append(handles, h)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err = tx.ExecContext(ctx, `DELETE FROM property_images WHERE property_id = ?`, id); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM favorites WHERE property_id = ?`, id); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return handles, nil
}
