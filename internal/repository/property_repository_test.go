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

func testTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
}

func TestPropertyValidate(t *testing.T) {
	p := Property{DealType: "barter", Status: "unknown", Rooms: -1}
	ve := p.Validate()
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "address")
	assert.Contains(t, ve.Fields, "district")
	assert.Contains(t, ve.Fields, "deal_type")
	assert.Contains(t, ve.Fields, "status")
	assert.Contains(t, ve.Fields, "rooms")

	ok := Property{
		Title: "flat", Address: "a", District: "b",
		DealType: DealTypeSale, Status: policy.StatusDraft,
	}
	assert.Nil(t, ok.Validate())
}

func TestPropertyDeleteRejectsNonDraft(t *testing.T) {
	db, mock := newMock(t)
	r := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM properties`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(policy.StatusActive))
	mock.ExpectRollback()

	_, err := r.Delete(context.Background(), 4)
	ve, ok := AsValidation(err)
	require.True(t, ok, "non-draft delete must be a validation error, got %v", err)
	assert.Contains(t, ve.Fields, "status")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyDeleteProtectedByDeals(t *testing.T) {
	db, mock := newMock(t)
	r := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM properties`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(policy.StatusDraft))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM deals`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := r.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyDeleteCascadesAndReturnsHandles(t *testing.T) {
	db, mock := newMock(t)
	r := NewPropertyRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM properties`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(policy.StatusDraft))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM deals`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT blob_handle FROM property_images`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"blob_handle"}).AddRow("h1").AddRow("h2"))
	mock.ExpectExec(`DELETE FROM property_images`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM favorites`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM properties`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	handles, err := r.Delete(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, handles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertySearchAppliesScopeAndFilters(t *testing.T) {
	db, mock := newMock(t)
	r := NewPropertyRepo(db)

	scope := policy.PropertyScope(policy.Principal{ID: 3, Role: policy.RoleRealtor}, "", false)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM properties p WHERE p.status = \? AND p.deal_type = \?`).
		WithArgs(policy.StatusActive, DealTypeRent).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	cols := []string{"id", "title", "description", "address", "district", "city",
		"deal_type", "status", "rooms", "area", "price", "realtor_id", "created_at", "updated_at"}
	mock.ExpectQuery(`(?s)SELECT .+ FROM properties p\s+WHERE p\.status = \? AND p\.deal_type = \?`).
		WithArgs(policy.StatusActive, DealTypeRent, 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "flat", "", "a", "b", "c", DealTypeRent, policy.StatusActive, 2, 50.0, 900.0, 3,
				testTime(t), testTime(t)))

	items, total, err := r.Search(context.Background(), scope, PropertySearch{DealType: DealTypeRent})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "flat", items[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
