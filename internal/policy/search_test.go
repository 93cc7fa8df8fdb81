package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateSavedQuery(t *testing.T) {
	staff := Principal{ID: 1, Role: RoleAdmin}
	realtor := Principal{ID: 7, Role: RoleRealtor}

	t.Run("empty dictionary gets active fallback for non-staff", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{}, realtor)
		assert.Equal(t, "p.status = ?", pr.Clause())
		assert.Equal(t, []any{StatusActive}, pr.Args)
	})

	t.Run("empty dictionary unrestricted for staff", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{}, staff)
		assert.Empty(t, pr.Where)
	})

	t.Run("explicit status suppresses fallback", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{"status": StatusDraft}, realtor)
		assert.Equal(t, "p.status = ?", pr.Clause())
		assert.Equal(t, []any{StatusDraft}, pr.Args)
	})

	t.Run("range keys map to comparison operators", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{
			"price_min": float64(100),
			"price_max": "250.5",
		}, staff)
		assert.Equal(t, "p.price >= ? AND p.price <= ?", pr.Clause())
		assert.Equal(t, []any{float64(100), 250.5}, pr.Args)
	})

	t.Run("rooms accepts scalar list and csv", func(t *testing.T) {
		for _, v := range []any{
			float64(2),
			[]any{float64(2)},
			"2",
		} {
			pr := TranslateSavedQuery(map[string]any{"rooms": v, "status": StatusActive}, realtor)
			assert.Contains(t, pr.Clause(), "p.rooms IN (?)")
		}
		pr := TranslateSavedQuery(map[string]any{"rooms": "1,2,3", "status": StatusActive}, realtor)
		assert.Contains(t, pr.Clause(), "p.rooms IN (?,?,?)")
	})

	t.Run("mine binds the requester", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{"mine": true, "status": StatusDraft}, realtor)
		require.Contains(t, pr.Clause(), "p.realtor_id = ?")
		assert.Contains(t, pr.Args, realtor.ID)
	})

	t.Run("unknown keys and empty values are ignored", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{
			"status":   StatusActive,
			"garage":   true,
			"district": "   ",
			"city":     nil,
		}, staff)
		assert.Equal(t, "p.status = ?", pr.Clause())
	})

	t.Run("exact keys map to equality", func(t *testing.T) {
		pr := TranslateSavedQuery(map[string]any{
			"status":    StatusActive,
			"deal_type": "rent",
			"district":  "center",
			"city":      "Bishkek",
		}, staff)
		assert.Equal(t,
			"p.status = ? AND p.deal_type = ? AND p.district = ? AND p.city = ?",
			pr.Clause())
	})
}

func TestTruthy(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", "yes", "on"} {
		assert.True(t, Truthy(s), s)
	}
	for _, s := range []string{"", "0", "false", "off", "nope"} {
		assert.False(t, Truthy(s), s)
	}
}
