package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/repository"
)

// SavedSearchHandler bundles dependencies for saved-search endpoints.
type SavedSearchHandler struct {
	Searches   *repository.SavedSearchRepo
	Properties *repository.PropertyRepo
}

func NewSavedSearchHandler(s *repository.SavedSearchRepo, p *repository.PropertyRepo) *SavedSearchHandler {
	return &SavedSearchHandler{Searches: s, Properties: p}
}

type savedSearchCreateReq struct {
	Name  string         `json:"name"`
	Query map[string]any `json:"query"`
}

// Create stores a filter dictionary verbatim for the caller. Keys are
// not validated here; unknown ones are simply ignored at run time.
func (h *SavedSearchHandler) Create(c echo.Context) error {
	p := principal(c)
	var req savedSearchCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return writeError(c, repository.NewValidationError("name", "required"))
	}
	s := repository.SavedSearch{UserID: p.ID, Name: req.Name, Query: req.Query}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Searches.Create(ctx, &s); err != nil {
		return writeError(c, err)
	}
	audit(c, "created", "saved_search", s.ID, s.Name)
	return c.JSON(http.StatusCreated, s)
}

// List returns the caller's saved searches, newest first.
func (h *SavedSearchHandler) List(c echo.Context) error {
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Searches.ListByUser(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []repository.SavedSearch{}
	}
	return c.JSON(http.StatusOK, items)
}

// get loads one saved search for the caller. Saved searches are
// strictly private: someone else's search reads as missing, even for
// staff.
func (h *SavedSearchHandler) get(c echo.Context) (*repository.SavedSearch, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Searches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.UserID != principal(c).ID {
		return nil, repository.ErrSavedSearchNotFound
	}
	return s, nil
}

// Get returns one saved search.
func (h *SavedSearchHandler) Get(c echo.Context) error {
	s, err := h.get(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete removes a saved search.
func (h *SavedSearchHandler) Delete(c echo.Context) error {
	s, err := h.get(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Searches.Delete(ctx, s.ID); err != nil {
		return writeError(c, err)
	}
	audit(c, "deleted", "saved_search", s.ID, s.Name)
	return c.NoContent(http.StatusNoContent)
}

// Run executes a saved search against the live catalog. The stored
// dictionary is translated through the fixed key table; non-staff
// callers get the active-only fallback when the dictionary did not
// constrain status. Results come back newest-id first.
func (h *SavedSearchHandler) Run(c echo.Context) error {
	s, err := h.get(c)
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	pred := policy.TranslateSavedQuery(s.Query, p)
	limit, offset := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.Properties.SearchByPredicate(ctx, pred, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Count: total, Results: items})
}
