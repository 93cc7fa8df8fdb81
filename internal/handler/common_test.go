package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/repository"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestPrincipalFromClaims(t *testing.T) {
	t.Run("float64 subject from JWT claims", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("user_id", float64(42))
		c.Set("role", policy.RoleManager)
		p := principal(c)
		assert.Equal(t, uint64(42), p.ID)
		assert.True(t, p.IsStaff())
	})

	t.Run("string subject parsed", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("user_id", "7")
		c.Set("role", policy.RoleRealtor)
		p := principal(c)
		assert.Equal(t, uint64(7), p.ID)
		assert.False(t, p.IsStaff())
	})

	t.Run("missing claims yield anonymous", func(t *testing.T) {
		c, _ := newTestContext(t)
		p := principal(c)
		assert.False(t, p.Authenticated())
	})
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unauthenticated", policy.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", policy.ErrForbidden, http.StatusForbidden},
		{"conflict", repository.ErrConflict, http.StatusConflict},
		{"property not found", repository.ErrPropertyNotFound, http.StatusNotFound},
		{"showing not found", repository.ErrShowingNotFound, http.StatusNotFound},
		{"validation", repository.NewValidationError("starts_at", "overlaps"), http.StatusBadRequest},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			require.NoError(t, writeError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestWriteErrorValidationBody(t *testing.T) {
	c, rec := newTestContext(t)
	require.NoError(t, writeError(c, repository.NewValidationError("starts_at", "overlaps an existing showing for this agent")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"errors":{"starts_at":"overlaps an existing showing for this agent"}}`,
		rec.Body.String())
}
