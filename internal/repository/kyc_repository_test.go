package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKYCSetDocumentRejectsUnknownSlot(t *testing.T) {
	db, _ := newMock(t)
	r := NewKYCRepo(db)

	err := r.SetDocument(context.Background(), 1, "passport", "h")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "slot")
}

func TestKYCSetDocumentResetsRejectedToPending(t *testing.T) {
	db, mock := newMock(t)
	r := NewKYCRepo(db)

	mock.ExpectExec(`UPDATE kyc_profiles`).
		WithArgs("h", KYCRejected, KYCPending, KYCRejected, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.SetDocument(context.Background(), 1, "doc_front", "h"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKYCReviewValidatesStatus(t *testing.T) {
	db, _ := newMock(t)
	r := NewKYCRepo(db)

	_, err := r.Review(context.Background(), 1, "maybe", "", 2)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "status")
}
