// This file defines the Showing model and repository. A showing is a
// scheduled visit of a property by a client, run by an agent. The core
// invariant lives here: no two planned showings for the same agent may
// start within one slot window of each other. The check and the insert
// run in a single transaction whose overlap query locks the agent's
// planned rows, so two concurrent writers cannot both pass the check.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Showing status values.
const (
	ShowingPlanned  = "planned"
	ShowingDone     = "done"
	ShowingCanceled = "canceled"
)

// Showing references a property and the agent who runs the visit.
// The agent reference is immutable after creation.
type Showing struct {
	ID          uint64    `json:"id"`
	PropertyID  uint64    `json:"property_id"`
	AgentID     uint64    `json:"agent_id"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	StartsAt    time.Time `json:"starts_at"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnerID resolves the controlling principal for the ownership guard.
func (s *Showing) OwnerID() uint64 { return s.AgentID }

var showingStatuses = map[string]bool{
	ShowingPlanned:  true,
	ShowingDone:     true,
	ShowingCanceled: true,
}

// Validate checks required fields and enum membership.
func (s *Showing) Validate() *ValidationError {
	fields := map[string]string{}
	if s.PropertyID == 0 {
		fields["property"] = "required"
	}
	if strings.TrimSpace(s.ClientName) == "" {
		fields["client_name"] = "required"
	}
	if s.StartsAt.IsZero() {
		fields["starts_at"] = "required"
	}
	if !showingStatuses[s.Status] {
		fields["status"] = "unknown status"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// errOverlap is the field-attributed rejection produced by the conflict
// detector. Both the ordinary write path and the transactional loser of
// a concurrent race receive this same error.
func errOverlap() *ValidationError {
	return NewValidationError("starts_at", "overlaps an existing showing for this agent")
}

// ShowingRepo manages persistence for showings. slotMinutes is the
// configured window W: two planned showings for one agent must start at
// least W minutes apart. Exactly W minutes of separation is allowed;
// the window spans [starts_at-(W-1), starts_at+(W-1)] inclusive, which
// keeps back-to-back W-minute slots non-conflicting.
type ShowingRepo struct {
	db          *sql.DB
	slotMinutes int
}

// NewShowingRepo constructs a ShowingRepo with the given DB handle and
// slot window in minutes.
func NewShowingRepo(db *sql.DB, slotMinutes int) *ShowingRepo {
	if slotMinutes <= 0 {
		slotMinutes = 60
	}
	return &ShowingRepo{db: db, slotMinutes: slotMinutes}
}

// window returns the inclusive bounds around a candidate start time.
func (r *ShowingRepo) window(t time.Time) (time.Time, time.Time) {
	d := time.Duration(r.slotMinutes-1) * time.Minute
	return t.Add(-d), t.Add(d)
}

// Overlaps reports whether a planned showing for the agent already
// starts within the slot window around startsAt. excludeID skips the
// candidate's own row in the update case; pass zero on create.
func (r *ShowingRepo) Overlaps(ctx context.Context, agentID uint64, startsAt time.Time, excludeID uint64) (bool, error) {
	lo, hi := r.window(startsAt)
	q := `SELECT 1 FROM showings
        WHERE agent_id = ? AND status = ? AND starts_at BETWEEN ? AND ?`
	args := []any{agentID, ShowingPlanned, lo, hi}
	if excludeID != 0 {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// overlapsTx is the locking variant used inside the write transaction.
// FOR UPDATE serializes concurrent writers touching the same agent's
// planned rows, so the check-then-insert sequence cannot interleave.
func (r *ShowingRepo) overlapsTx(ctx context.Context, tx *sql.Tx, agentID uint64, startsAt time.Time, excludeID uint64) (bool, error) {
	lo, hi := r.window(startsAt)
	q := `SELECT 1 FROM showings
        WHERE agent_id = ? AND status = ? AND starts_at BETWEEN ? AND ?`
	args := []any{agentID, ShowingPlanned, lo, hi}
	if excludeID != 0 {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` LIMIT 1 FOR UPDATE`
	var one int
	err := tx.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a new showing. When the showing is planned, the
// conflict check runs in the same transaction as the insert; a conflict
// is rejected with a starts_at validation error.
func (r *ShowingRepo) Create(ctx context.Context, s *Showing) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if s.Status == ShowingPlanned {
		var busy bool
		busy, err = r.overlapsTx(ctx, tx, s.AgentID, s.StartsAt, 0)
		if err != nil {
			return err
		}
		if busy {
			err = errOverlap()
			return err
		}
	}

	const q = `INSERT INTO showings (property_id, agent_id, client_name, client_phone, starts_at, status)
        VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.PropertyID, s.AgentID, s.ClientName, s.ClientPhone, s.StartsAt, s.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM showings WHERE id = ?`, s.ID).Scan(&s.CreatedAt)
	return err
}

// Update persists mutable fields of a showing. The conflict check only
// applies when the resulting status is planned; moving a showing to
// done or canceled is exempt. The agent reference never changes.
func (r *ShowingRepo) Update(ctx context.Context, s *Showing) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if s.Status == ShowingPlanned {
		var busy bool
		busy, err = r.overlapsTx(ctx, tx, s.AgentID, s.StartsAt, s.ID)
		if err != nil {
			return err
		}
		if busy {
			err = errOverlap()
			return err
		}
	}

	const q = `UPDATE showings
        SET property_id = ?, client_name = ?, client_phone = ?, starts_at = ?, status = ?
        WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, s.PropertyID, s.ClientName, s.ClientPhone, s.StartsAt, s.Status, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if scanErr := tx.QueryRowContext(ctx, `SELECT 1 FROM showings WHERE id = ? LIMIT 1`, s.ID).Scan(&one); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				err = ErrShowingNotFound
				return err
			}
			err = scanErr
			return err
		}
	}
	return nil
}

// GetByID retrieves a showing by its ID.
func (r *ShowingRepo) GetByID(ctx context.Context, id uint64) (*Showing, error) {
	const q = `SELECT id, property_id, agent_id, client_name, client_phone, starts_at, status, created_at
        FROM showings WHERE id = ?`
	var s Showing
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.PropertyID, &s.AgentID, &s.ClientName, &s.ClientPhone, &s.StartsAt, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowingNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns showings whose starts_at falls inside [from, to],
// further restricted by the caller's visibility clause on the s alias,
// ordered by start time ascending.
func (r *ShowingRepo) List(ctx context.Context, scopeClause string, scopeArgs []any, from, to time.Time) ([]Showing, error) {
	q := `SELECT s.id, s.property_id, s.agent_id, s.client_name, s.client_phone, s.starts_at, s.status, s.created_at
        FROM showings s
        WHERE ` + scopeClause + ` AND s.starts_at BETWEEN ? AND ?
        ORDER BY s.starts_at ASC`
	args := append(append([]any{}, scopeArgs...), from, to)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Showing
	for rows.Next() {
		var s Showing
		if err := rows.Scan(&s.ID, &s.PropertyID, &s.AgentID, &s.ClientName, &s.ClientPhone, &s.StartsAt, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a showing by ID.
func (r *ShowingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM showings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrShowingNotFound
	}
	return nil
}
