package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestShowingWindowBounds(t *testing.T) {
	r := NewShowingRepo(nil, 60)
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	lo, hi := r.window(at)
	// The window is inclusive and spans W-1 minutes each way, so two
	// showings exactly W minutes apart never conflict.
	assert.Equal(t, at.Add(-59*time.Minute), lo)
	assert.Equal(t, at.Add(59*time.Minute), hi)

	assert.True(t, at.Add(60*time.Minute).After(hi), "start at T+W must fall outside the window")
	assert.False(t, at.Add(59*time.Minute).After(hi), "start at T+W-1 must fall inside the window")
}

func TestShowingWindowCustomSlot(t *testing.T) {
	r := NewShowingRepo(nil, 30)
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lo, hi := r.window(at)
	assert.Equal(t, at.Add(-29*time.Minute), lo)
	assert.Equal(t, at.Add(29*time.Minute), hi)
}

func TestShowingRepoDefaultsSlot(t *testing.T) {
	r := NewShowingRepo(nil, 0)
	assert.Equal(t, 60, r.slotMinutes)
}

func TestShowingCreateConflict(t *testing.T) {
	db, mock := newMock(t)
	r := NewShowingRepo(db, 60)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lo, hi := r.window(at)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM showings`).
		WithArgs(uint64(7), ShowingPlanned, lo, hi).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	s := &Showing{PropertyID: 1, AgentID: 7, ClientName: "x", StartsAt: at, Status: ShowingPlanned}
	err := r.Create(context.Background(), s)

	ve, ok := AsValidation(err)
	require.True(t, ok, "conflict must surface as a validation error, got %v", err)
	assert.Contains(t, ve.Fields, "starts_at")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowingCreateOK(t *testing.T) {
	db, mock := newMock(t)
	r := NewShowingRepo(db, 60)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lo, hi := r.window(at)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM showings`).
		WithArgs(uint64(7), ShowingPlanned, lo, hi).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(`INSERT INTO showings`).
		WithArgs(uint64(1), uint64(7), "x", "555", at, ShowingPlanned).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`SELECT created_at FROM showings`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectCommit()

	s := &Showing{PropertyID: 1, AgentID: 7, ClientName: "x", ClientPhone: "555", StartsAt: at, Status: ShowingPlanned}
	require.NoError(t, r.Create(context.Background(), s))
	assert.Equal(t, uint64(11), s.ID)
	assert.Equal(t, created, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowingCreateSkipsCheckWhenNotPlanned(t *testing.T) {
	db, mock := newMock(t)
	r := NewShowingRepo(db, 60)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO showings`).
		WithArgs(uint64(1), uint64(7), "x", "", at, ShowingCanceled).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(`SELECT created_at FROM showings`).
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(at))
	mock.ExpectCommit()

	s := &Showing{PropertyID: 1, AgentID: 7, ClientName: "x", StartsAt: at, Status: ShowingCanceled}
	require.NoError(t, r.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowingUpdateExcludesOwnRow(t *testing.T) {
	db, mock := newMock(t)
	r := NewShowingRepo(db, 60)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lo, hi := r.window(at)

	mock.ExpectBegin()
	// The exclusion clause means a showing can keep (or nudge) its own
	// start time without colliding with itself.
	mock.ExpectQuery(`SELECT 1 FROM showings`).
		WithArgs(uint64(7), ShowingPlanned, lo, hi, uint64(33)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(`UPDATE showings`).
		WithArgs(uint64(1), "x", "", at, ShowingPlanned, uint64(33)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &Showing{ID: 33, PropertyID: 1, AgentID: 7, ClientName: "x", StartsAt: at, Status: ShowingPlanned}
	require.NoError(t, r.Update(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowingValidate(t *testing.T) {
	s := Showing{}
	ve := s.Validate()
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields, "property")
	assert.Contains(t, ve.Fields, "client_name")
	assert.Contains(t, ve.Fields, "starts_at")
	assert.Contains(t, ve.Fields, "status")

	ok := Showing{PropertyID: 1, ClientName: "a", StartsAt: time.Now(), Status: ShowingPlanned}
	assert.Nil(t, ok.Validate())
}
