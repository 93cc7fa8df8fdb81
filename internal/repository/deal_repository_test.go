package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LostFrxks/homy/internal/policy"
)

func TestDealConcluded(t *testing.T) {
	assert.True(t, (&Deal{Stage: StageClosed}).Concluded())
	assert.True(t, (&Deal{Stage: StageCanceled}).Concluded())
	assert.False(t, (&Deal{Stage: StageNegotiation}).Concluded())
}

func TestDealGetScopedMasksInvisibleRows(t *testing.T) {
	db, mock := newMock(t)
	r := NewDealRepo(db)

	scope := policy.DealScope(policy.Principal{ID: 9, Role: policy.RoleRealtor}, false)

	mock.ExpectQuery(`(?s)SELECT .+ FROM deals d WHERE \(d\.created_by = \? OR d\.assigned_to = \?\) AND d\.id = \?`).
		WithArgs(uint64(9), uint64(9), uint64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.GetScoped(context.Background(), 77, scope)
	assert.ErrorIs(t, err, ErrDealNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDealUpdateNeverClearsClosedAt(t *testing.T) {
	db, mock := newMock(t)
	r := NewDealRepo(db)

	closed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	d := &Deal{
		ID: 5, PropertyID: 1, Stage: StageSigned, ClientName: "c",
		CreatedBy: 9,
		// Incoming closed_at is nil: COALESCE must keep the stored value.
	}

	mock.ExpectExec(`UPDATE deals d`).
		WithArgs(uint64(1), StageSigned, "c", "", "", 0.0, 0.0, nil, nil, nil, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	cols := []string{"id", "property_id", "stage", "client_name", "client_phone", "comment",
		"price", "commission", "created_by", "assigned_to", "planned_date", "closed_at",
		"created_at", "updated_at"}
	mock.ExpectQuery(`(?s)SELECT .+ FROM deals d WHERE d\.id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, StageSigned, "c", "", "", 0.0, 0.0, 9, nil, nil, closed,
				testTime(t), testTime(t)))

	require.NoError(t, r.Update(context.Background(), d))
	require.NotNil(t, d.ClosedAt)
	assert.Equal(t, closed, *d.ClosedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
