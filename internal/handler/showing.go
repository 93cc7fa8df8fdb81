package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/repository"
)

// defaultCalendarSpan is the listing window applied when the caller
// supplies no bounds: today through two weeks out.
const defaultCalendarSpan = 14 * 24 * time.Hour

// ShowingHandler bundles dependencies for showing endpoints.
type ShowingHandler struct {
	Showings   *repository.ShowingRepo
	Properties *repository.PropertyRepo
}

func NewShowingHandler(s *repository.ShowingRepo, p *repository.PropertyRepo) *ShowingHandler {
	return &ShowingHandler{Showings: s, Properties: p}
}

type showingCreateReq struct {
	PropertyID  uint64    `json:"property_id"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	StartsAt    time.Time `json:"starts_at"`
	Status      string    `json:"status"`
}

type showingUpdateReq struct {
	PropertyID  *uint64    `json:"property_id"`
	ClientName  *string    `json:"client_name"`
	ClientPhone *string    `json:"client_phone"`
	StartsAt    *time.Time `json:"starts_at"`
	Status      *string    `json:"status"`
}

// Create schedules a showing run by the caller. The repository rejects
// a start time within the slot window of another planned showing for
// the same agent.
func (h *ShowingHandler) Create(c echo.Context) error {
	p := principal(c)
	var req showingCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status == "" {
		req.Status = repository.ShowingPlanned
	}
	s := repository.Showing{
		PropertyID:  req.PropertyID,
		AgentID:     p.ID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		StartsAt:    req.StartsAt.UTC(),
		Status:      req.Status,
	}
	if ve := s.Validate(); ve != nil {
		return writeError(c, ve)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Properties.GetByID(ctx, s.PropertyID); err != nil {
		return writeError(c, err)
	}
	if err := h.Showings.Create(ctx, &s); err != nil {
		return writeError(c, err)
	}
	audit(c, "created", "showing", s.ID, s.StartsAt.Format(time.RFC3339))
	return c.JSON(http.StatusCreated, s)
}

// List returns the caller's calendar. Staff see every agent unless
// they ask for mine=true. Without from/to the window defaults to the
// next two weeks.
func (h *ShowingHandler) List(c echo.Context) error {
	p := principal(c)
	scope := policy.ShowingScope(p, policy.Truthy(c.QueryParam("mine")))

	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.Add(defaultCalendarSpan)
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return writeError(c, repository.NewValidationError("from", "must be RFC3339"))
		}
		from = t.UTC()
		to = from.Add(defaultCalendarSpan)
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return writeError(c, repository.NewValidationError("to", "must be RFC3339"))
		}
		to = t.UTC()
	}
	if to.Before(from) {
		return writeError(c, repository.NewValidationError("to", "must not precede from"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Showings.List(ctx, scope.Clause(), scope.Args, from, to)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []repository.Showing{}
	}
	return c.JSON(http.StatusOK, items)
}

// Get returns one showing. A showing belongs to its agent: anyone else
// without staff privilege gets the same not-found as a missing row.
func (h *ShowingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Showings.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	if !p.IsStaff() && s.AgentID != p.ID {
		return writeError(c, repository.ErrShowingNotFound)
	}
	return c.JSON(http.StatusOK, s)
}

// Update applies a partial update. The agent never changes; moving the
// start while the showing stays planned re-runs the conflict check
// excluding the showing's own row.
func (h *ShowingHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Showings.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), c.Request().Method, s); err != nil {
		return writeError(c, err)
	}

	var req showingUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PropertyID != nil {
		s.PropertyID = *req.PropertyID
	}
	if req.ClientName != nil {
		s.ClientName = *req.ClientName
	}
	if req.ClientPhone != nil {
		s.ClientPhone = *req.ClientPhone
	}
	if req.StartsAt != nil {
		s.StartsAt = req.StartsAt.UTC()
	}
	if req.Status != nil {
		s.Status = *req.Status
	}
	if ve := s.Validate(); ve != nil {
		return writeError(c, ve)
	}
	if req.PropertyID != nil {
		if _, err := h.Properties.GetByID(ctx, s.PropertyID); err != nil {
			return writeError(c, err)
		}
	}

	if err := h.Showings.Update(ctx, s); err != nil {
		return writeError(c, err)
	}
	audit(c, "updated", "showing", s.ID, s.Status)
	return c.JSON(http.StatusOK, s)
}

// Delete removes a showing.
func (h *ShowingHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Showings.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), c.Request().Method, s); err != nil {
		return writeError(c, err)
	}
	if err := h.Showings.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	audit(c, "deleted", "showing", id, "")
	return c.NoContent(http.StatusNoContent)
}
