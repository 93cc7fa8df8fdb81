package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/repository"
)

// FavoriteHandler bundles dependencies for favorite endpoints.
type FavoriteHandler struct {
	Favorites  *repository.FavoriteRepo
	Properties *repository.PropertyRepo
}

func NewFavoriteHandler(f *repository.FavoriteRepo, p *repository.PropertyRepo) *FavoriteHandler {
	return &FavoriteHandler{Favorites: f, Properties: p}
}

// Toggle flips the caller's favorite mark on a property and reports
// the resulting state. Toggling twice is a no-op pair.
func (h *FavoriteHandler) Toggle(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Properties.GetByID(ctx, id); err != nil {
		return writeError(c, err)
	}
	isFav, err := h.Favorites.Toggle(ctx, p.ID, id)
	if err != nil {
		return writeError(c, err)
	}
	audit(c, "toggled", "favorite", id, "")
	return c.JSON(http.StatusOK, echo.Map{"property_id": id, "is_favorite": isFav})
}

// List returns the caller's favorited properties in the order they
// were added.
func (h *FavoriteHandler) List(c echo.Context) error {
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Favorites.ListProperties(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []repository.Property{}
	}
	return c.JSON(http.StatusOK, items)
}
