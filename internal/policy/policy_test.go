package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedThing struct{ owner uint64 }

func (o ownedThing) OwnerID() uint64 { return o.owner }

func TestPredicateClause(t *testing.T) {
	var pr Predicate
	assert.Equal(t, "1=1", pr.Clause())

	pr.And("a = ?", 1)
	assert.Equal(t, "a = ?", pr.Clause())

	pr.And("b = ?", 2)
	assert.Equal(t, "a = ? AND b = ?", pr.Clause())
	assert.Equal(t, []any{1, 2}, pr.Args)
}

func TestPropertyScope(t *testing.T) {
	staff := Principal{ID: 1, Role: RoleManager}
	realtor := Principal{ID: 7, Role: RoleRealtor}

	t.Run("staff unrestricted by default", func(t *testing.T) {
		pr := PropertyScope(staff, "", false)
		assert.Empty(t, pr.Where)
	})

	t.Run("explicit status applied verbatim", func(t *testing.T) {
		pr := PropertyScope(realtor, StatusDraft, false)
		require.Len(t, pr.Where, 1)
		assert.Equal(t, "p.status = ?", pr.Where[0])
		assert.Equal(t, []any{StatusDraft}, pr.Args)
	})

	t.Run("non-staff falls back to active", func(t *testing.T) {
		pr := PropertyScope(realtor, "", false)
		require.Len(t, pr.Where, 1)
		assert.Equal(t, []any{StatusActive}, pr.Args)
	})

	t.Run("mine lifts the fallback", func(t *testing.T) {
		pr := PropertyScope(realtor, "", true)
		require.Len(t, pr.Where, 1)
		assert.Equal(t, "p.realtor_id = ?", pr.Where[0])
		assert.Equal(t, []any{realtor.ID}, pr.Args)
	})

	t.Run("mine combines with explicit status", func(t *testing.T) {
		pr := PropertyScope(realtor, StatusSold, true)
		assert.Equal(t, "p.realtor_id = ? AND p.status = ?", pr.Clause())
		assert.Equal(t, []any{realtor.ID, StatusSold}, pr.Args)
	})

	t.Run("staff mine restricts to own rows", func(t *testing.T) {
		pr := PropertyScope(staff, "", true)
		assert.Equal(t, "p.realtor_id = ?", pr.Clause())
	})
}

func TestShowingScope(t *testing.T) {
	admin := Principal{ID: 2, Role: RoleAdmin}
	realtor := Principal{ID: 9, Role: RoleRealtor}

	assert.Empty(t, ShowingScope(admin, false).Where)
	assert.Equal(t, "s.agent_id = ?", ShowingScope(admin, true).Clause())
	assert.Equal(t, "s.agent_id = ?", ShowingScope(realtor, false).Clause())
	assert.Equal(t, []any{realtor.ID}, ShowingScope(realtor, false).Args)
}

func TestDealScope(t *testing.T) {
	admin := Principal{ID: 2, Role: RoleAdmin}
	realtor := Principal{ID: 9, Role: RoleRealtor}

	assert.Empty(t, DealScope(admin, false).Where)

	pr := DealScope(realtor, false)
	assert.Equal(t, "(d.created_by = ? OR d.assigned_to = ?)", pr.Clause())
	assert.Equal(t, []any{realtor.ID, realtor.ID}, pr.Args)

	assert.Equal(t, "(d.created_by = ? OR d.assigned_to = ?)", DealScope(admin, true).Clause())
}

func TestAuthorize(t *testing.T) {
	obj := ownedThing{owner: 5}

	t.Run("anonymous denied with 401 reason", func(t *testing.T) {
		err := Authorize(Principal{}, http.MethodGet, obj)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("safe methods need only authentication", func(t *testing.T) {
		p := Principal{ID: 42, Role: RoleRealtor}
		assert.NoError(t, Authorize(p, http.MethodGet, obj))
		assert.NoError(t, Authorize(p, http.MethodHead, obj))
	})

	t.Run("owner may write", func(t *testing.T) {
		p := Principal{ID: 5, Role: RoleRealtor}
		assert.NoError(t, Authorize(p, http.MethodPatch, obj))
	})

	t.Run("staff may write anything", func(t *testing.T) {
		p := Principal{ID: 1, Role: RoleManager}
		assert.NoError(t, Authorize(p, http.MethodDelete, obj))
	})

	t.Run("non-owner write denied with 403 reason", func(t *testing.T) {
		p := Principal{ID: 42, Role: RoleRealtor}
		err := Authorize(p, http.MethodDelete, obj)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestIsStaff(t *testing.T) {
	assert.True(t, Principal{Role: RoleAdmin}.IsStaff())
	assert.True(t, Principal{Role: RoleManager}.IsStaff())
	assert.False(t, Principal{Role: RoleRealtor}.IsStaff())
	assert.False(t, Principal{}.IsStaff())
}
