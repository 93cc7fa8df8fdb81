package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/repository"
)

// DealHandler bundles dependencies for deal endpoints.
type DealHandler struct {
	Deals      *repository.DealRepo
	Properties *repository.PropertyRepo
}

func NewDealHandler(d *repository.DealRepo, p *repository.PropertyRepo) *DealHandler {
	return &DealHandler{Deals: d, Properties: p}
}

type dealCreateReq struct {
	PropertyID  uint64     `json:"property_id"`
	Stage       string     `json:"stage"`
	ClientName  string     `json:"client_name"`
	ClientPhone string     `json:"client_phone"`
	Comment     string     `json:"comment"`
	Price       float64    `json:"price"`
	Commission  float64    `json:"commission"`
	AssignedTo  *uint64    `json:"assigned_to"`
	PlannedDate *time.Time `json:"planned_date"`
}

type dealUpdateReq struct {
	PropertyID  *uint64    `json:"property_id"`
	Stage       *string    `json:"stage"`
	ClientName  *string    `json:"client_name"`
	ClientPhone *string    `json:"client_phone"`
	Comment     *string    `json:"comment"`
	Price       *float64   `json:"price"`
	Commission  *float64   `json:"commission"`
	AssignedTo  *uint64    `json:"assigned_to"`
	PlannedDate *time.Time `json:"planned_date"`
}

// Create opens a deal. The caller becomes the immutable creator; new
// deals start in the lead stage unless told otherwise.
func (h *DealHandler) Create(c echo.Context) error {
	p := principal(c)
	var req dealCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Stage == "" {
		req.Stage = repository.StageLead
	}
	d := repository.Deal{
		PropertyID:  req.PropertyID,
		Stage:       req.Stage,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Comment:     req.Comment,
		Price:       req.Price,
		Commission:  req.Commission,
		CreatedBy:   p.ID,
		AssignedTo:  req.AssignedTo,
		PlannedDate: req.PlannedDate,
	}
	if d.Concluded() {
		now := time.Now().UTC()
		d.ClosedAt = &now
	}
	if ve := d.Validate(); ve != nil {
		return writeError(c, ve)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Properties.GetByID(ctx, d.PropertyID); err != nil {
		return writeError(c, err)
	}
	if err := h.Deals.Create(ctx, &d); err != nil {
		return writeError(c, err)
	}
	audit(c, "created", "deal", d.ID, d.Stage)
	return c.JSON(http.StatusCreated, d)
}

// List returns deals visible to the caller. Staff see the full
// pipeline, a realtor sees deals they created or were assigned to.
func (h *DealHandler) List(c echo.Context) error {
	p := principal(c)
	scope := policy.DealScope(p, policy.Truthy(c.QueryParam("mine")))

	var s repository.DealSearch
	s.Stage = c.QueryParam("stage")
	s.Search = c.QueryParam("search")
	if v := c.QueryParam("property_id"); v != "" {
		s.PropertyID, _ = strconv.ParseUint(v, 10, 64)
	}
	if v := c.QueryParam("created_by"); v != "" {
		s.CreatedBy, _ = strconv.ParseUint(v, 10, 64)
	}
	if v := c.QueryParam("assigned_to"); v != "" {
		s.AssignedTo, _ = strconv.ParseUint(v, 10, 64)
	}
	if v := c.QueryParam("price_min"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.PriceMin = &f
		}
	}
	if v := c.QueryParam("price_max"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.PriceMax = &f
		}
	}
	if v := c.QueryParam("created_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			t = t.UTC()
			s.CreatedFrom = &t
		}
	}
	if v := c.QueryParam("created_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			t = t.UTC()
			s.CreatedTo = &t
		}
	}
	s.Limit, s.Offset = pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.Deals.List(ctx, scope, s)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Count: total, Results: items})
}

// Get returns one deal through the caller's scope. A deal outside the
// scope is indistinguishable from a missing one.
func (h *DealHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Deals.GetScoped(ctx, id, policy.DealScope(p, false))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Update applies a partial update. Only the creator or staff may
// write; the assignee can watch but not steer. Entering a concluded
// stage stamps closed_at once, and an already set closed_at is never
// cleared.
func (h *DealHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Deals.GetScoped(ctx, id, policy.DealScope(p, false))
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(p, c.Request().Method, d); err != nil {
		return writeError(c, err)
	}

	var req dealUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PropertyID != nil {
		d.PropertyID = *req.PropertyID
	}
	if req.Stage != nil {
		d.Stage = *req.Stage
	}
	if req.ClientName != nil {
		d.ClientName = *req.ClientName
	}
	if req.ClientPhone != nil {
		d.ClientPhone = *req.ClientPhone
	}
	if req.Comment != nil {
		d.Comment = *req.Comment
	}
	if req.Price != nil {
		d.Price = *req.Price
	}
	if req.Commission != nil {
		d.Commission = *req.Commission
	}
	if req.AssignedTo != nil {
		d.AssignedTo = req.AssignedTo
	}
	if req.PlannedDate != nil {
		d.PlannedDate = req.PlannedDate
	}
	if d.Concluded() && d.ClosedAt == nil {
		now := time.Now().UTC()
		d.ClosedAt = &now
	}
	if ve := d.Validate(); ve != nil {
		return writeError(c, ve)
	}
	if req.PropertyID != nil {
		if _, err := h.Properties.GetByID(ctx, d.PropertyID); err != nil {
			return writeError(c, err)
		}
	}

	if err := h.Deals.Update(ctx, d); err != nil {
		return writeError(c, err)
	}
	audit(c, "updated", "deal", d.ID, d.Stage)
	return c.JSON(http.StatusOK, d)
}

// Delete removes a deal. Creator or staff only.
func (h *DealHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Deals.GetScoped(ctx, id, policy.DealScope(p, false))
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(p, c.Request().Method, d); err != nil {
		return writeError(c, err)
	}
	if err := h.Deals.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	audit(c, "deleted", "deal", id, "")
	return c.NoContent(http.StatusNoContent)
}
