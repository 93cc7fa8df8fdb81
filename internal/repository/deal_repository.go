// This file defines the Deal model and repository. A deal tracks one
// property through the sales pipeline. Openness is a single explicit
// stage enum; a deal is concluded when its stage is closed or canceled.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/LostFrxks/homy/internal/policy"
)

// Deal stage values.
const (
	StageLead        = "lead"
	StageNegotiation = "negotiation"
	StageSigned      = "signed"
	StageClosed      = "closed"
	StageCanceled    = "canceled"
)

// Deal references a property and carries an immutable creator plus an
// optional, reassignable assignee. Losing the assignee never deletes
// the deal.
type Deal struct {
	ID          uint64     `json:"id"`
	PropertyID  uint64     `json:"property_id"`
	Stage       string     `json:"stage"`
	ClientName  string     `json:"client_name"`
	ClientPhone string     `json:"client_phone"`
	Comment     string     `json:"comment"`
	Price       float64    `json:"price"`
	Commission  float64    `json:"commission"`
	CreatedBy   uint64     `json:"created_by"`
	AssignedTo  *uint64    `json:"assigned_to"`
	PlannedDate *time.Time `json:"planned_date"`
	ClosedAt    *time.Time `json:"closed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnerID resolves to the immutable creator for the ownership guard.
func (d *Deal) OwnerID() uint64 { return d.CreatedBy }

// Concluded reports whether the deal left the pipeline.
func (d *Deal) Concluded() bool {
	return d.Stage == StageClosed || d.Stage == StageCanceled
}

var dealStages = map[string]bool{
	StageLead:        true,
	StageNegotiation: true,
	StageSigned:      true,
	StageClosed:      true,
	StageCanceled:    true,
}

// Validate checks required fields, enum membership and numerics.
func (d *Deal) Validate() *ValidationError {
	fields := map[string]string{}
	if d.PropertyID == 0 {
		fields["property"] = "required"
	}
	if strings.TrimSpace(d.ClientName) == "" {
		fields["client_name"] = "required"
	}
	if !dealStages[d.Stage] {
		fields["stage"] = "unknown stage"
	}
	if d.Price < 0 {
		fields["price"] = "must not be negative"
	}
	if d.Commission < 0 {
		fields["commission"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// DealSearch defines filters and pagination for the deal listing.
type DealSearch struct {
	Stage       string
	PropertyID  uint64
	CreatedBy   uint64
	AssignedTo  uint64
	PriceMin    *float64
	PriceMax    *float64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string
	Limit       int
	Offset      int
}

const dealColumns = `d.id, d.property_id, d.stage, d.client_name, d.client_phone, d.comment,
        d.price, d.commission, d.created_by, d.assigned_to, d.planned_date, d.closed_at,
        d.created_at, d.updated_at`

// DealRepo manages persistence for deals.
type DealRepo struct {
	db *sql.DB
}

// NewDealRepo constructs a DealRepo with the given DB handle.
func NewDealRepo(db *sql.DB) *DealRepo { return &DealRepo{db: db} }

func scanDeal(row interface{ Scan(...any) error }, d *Deal) error {
	return row.Scan(
		&d.ID, &d.PropertyID, &d.Stage, &d.ClientName, &d.ClientPhone, &d.Comment,
		&d.Price, &d.Commission, &d.CreatedBy, &d.AssignedTo, &d.PlannedDate, &d.ClosedAt,
		&d.CreatedAt, &d.UpdatedAt)
}

// Create inserts a new deal and assigns the generated ID plus the
// DB-default timestamps back to the struct.
func (r *DealRepo) Create(ctx context.Context, d *Deal) error {
	const q = `INSERT INTO deals
        (property_id, stage, client_name, client_phone, comment, price, commission, created_by, assigned_to, planned_date, closed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		d.PropertyID, d.Stage, d.ClientName, d.ClientPhone, d.Comment,
		d.Price, d.Commission, d.CreatedBy, d.AssignedTo, d.PlannedDate, d.ClosedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	sel := `SELECT ` + dealColumns + ` FROM deals d WHERE d.id = ?`
	return scanDeal(r.db.QueryRowContext(ctx, sel, d.ID), d)
}

// GetScoped retrieves a deal visible under the caller's scope. An
// invisible deal and a nonexistent one are indistinguishable.
func (r *DealRepo) GetScoped(ctx context.Context, id uint64, scope policy.Predicate) (*Deal, error) {
	pred := scope
	pred.And("d.id = ?", id)
	q := `SELECT ` + dealColumns + ` FROM deals d WHERE ` + pred.Clause()
	var d Deal
	if err := scanDeal(r.db.QueryRowContext(ctx, q, pred.Args...), &d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns deals matching the scope and filters with a total count,
// newest first.
func (r *DealRepo) List(ctx context.Context, scope policy.Predicate, s DealSearch) ([]Deal, int64, error) {
	pred := scope
	if s.Stage != "" {
		pred.And("d.stage = ?", s.Stage)
	}
	if s.PropertyID != 0 {
		pred.And("d.property_id = ?", s.PropertyID)
	}
	if s.CreatedBy != 0 {
		pred.And("d.created_by = ?", s.CreatedBy)
	}
	if s.AssignedTo != 0 {
		pred.And("d.assigned_to = ?", s.AssignedTo)
	}
	if s.PriceMin != nil {
		pred.And("d.price >= ?", *s.PriceMin)
	}
	if s.PriceMax != nil {
		pred.And("d.price <= ?", *s.PriceMax)
	}
	if s.CreatedFrom != nil {
		pred.And("d.created_at >= ?", *s.CreatedFrom)
	}
	if s.CreatedTo != nil {
		pred.And("d.created_at <= ?", *s.CreatedTo)
	}
	if s.Search != "" {
		term := "%" + strings.ToLower(s.Search) + "%"
		pred.And("(LOWER(d.client_name) LIKE ? OR LOWER(d.client_phone) LIKE ? OR LOWER(d.comment) LIKE ?)",
			term, term, term)
	}

	limit := s.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := s.Offset
	if offset < 0 {
		offset = 0
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM deals d WHERE ` + pred.Clause()
	if err := r.db.QueryRowContext(ctx, countSQL, pred.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + dealColumns + `
        FROM deals d
        WHERE ` + pred.Clause() + `
        ORDER BY d.created_at DESC, d.id DESC
        LIMIT ? OFFSET ?`
	args := append(append([]any{}, pred.Args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Deal, 0, limit)
	for rows.Next() {
		var d Deal
		if err := scanDeal(rows, &d); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists mutable fields of a deal. The creator column is
// absent from the SET list; the assignee is reassignable. A non-null
// closed_at is never cleared by an ordinary update: COALESCE keeps the
// stored value when the incoming one is null.
func (r *DealRepo) Update(ctx context.Context, d *Deal) error {
	const q = `UPDATE deals d
        SET d.property_id = ?, d.stage = ?, d.client_name = ?, d.client_phone = ?, d.comment = ?,
            d.price = ?, d.commission = ?, d.assigned_to = ?, d.planned_date = ?,
            d.closed_at = COALESCE(?, d.closed_at),
            d.updated_at = CURRENT_TIMESTAMP
        WHERE d.id = ?`
	res, err := r.db.ExecContext(ctx, q,
		d.PropertyID, d.Stage, d.ClientName, d.ClientPhone, d.Comment,
		d.Price, d.Commission, d.AssignedTo, d.PlannedDate, d.ClosedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM deals WHERE id = ? LIMIT 1`, d.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDealNotFound
			}
			return err
		}
	}
	sel := `SELECT ` + dealColumns + ` FROM deals d WHERE d.id = ?`
	return scanDeal(r.db.QueryRowContext(ctx, sel, d.ID), d)
}

// Delete removes a deal by ID.
func (r *DealRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDealNotFound
	}
	return nil
}

// CountOpenByProperty counts pipeline deals still referencing a
// property (stage outside closed/canceled).
func (r *DealRepo) CountOpenByProperty(ctx context.Context, propertyID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deals WHERE property_id = ? AND stage NOT IN (?, ?)`,
		propertyID, StageClosed, StageCanceled).Scan(&n)
	return n, err
}
