package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteToggleRemoves(t *testing.T) {
	db, mock := newMock(t)
	r := NewFavoriteRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM favorites`).
		WithArgs(uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fav, err := r.Toggle(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.False(t, fav)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteToggleAdds(t *testing.T) {
	db, mock := newMock(t)
	r := NewFavoriteRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM favorites`).
		WithArgs(uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs(uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	fav, err := r.Toggle(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.True(t, fav)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteToggleDuplicateInsertTreatedAsExisting(t *testing.T) {
	db, mock := newMock(t)
	r := NewFavoriteRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM favorites`).
		WithArgs(uint64(5), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs(uint64(5), uint64(9)).
		WillReturnError(errors.New("Error 1062: Duplicate entry '5-9' for key 'uq_user_property'"))
	mock.ExpectCommit()

	fav, err := r.Toggle(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.True(t, fav)
	assert.NoError(t, mock.ExpectationsWereMet())
}
