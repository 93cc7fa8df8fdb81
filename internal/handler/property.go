package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/repository"
	"github.com/LostFrxks/homy/internal/storage"
)

// maxImageBytes caps a single uploaded image at 10 MB.
const maxImageBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// PropertyHandler bundles dependencies for property endpoints.
type PropertyHandler struct {
	Properties *repository.PropertyRepo
	Images     *repository.PropertyImageRepo
	Store      *storage.Private
}

func NewPropertyHandler(p *repository.PropertyRepo, i *repository.PropertyImageRepo, s *storage.Private) *PropertyHandler {
	return &PropertyHandler{Properties: p, Images: i, Store: s}
}

type propertyCreateReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	District    string  `json:"district"`
	City        string  `json:"city"`
	DealType    string  `json:"deal_type"`
	Status      string  `json:"status"`
	Rooms       int64   `json:"rooms"`
	Area        float64 `json:"area"`
	Price       float64 `json:"price"`
}

type propertyUpdateReq struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	District    *string  `json:"district"`
	City        *string  `json:"city"`
	DealType    *string  `json:"deal_type"`
	Status      *string  `json:"status"`
	Rooms       *int64   `json:"rooms"`
	Area        *float64 `json:"area"`
	Price       *float64 `json:"price"`
}

// Create registers a new listing owned by the caller. New listings
// start as drafts unless an explicit status is given.
func (h *PropertyHandler) Create(c echo.Context) error {
	p := principal(c)
	var req propertyCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status == "" {
		req.Status = policy.StatusDraft
	}
	prop := repository.Property{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		District:    req.District,
		City:        req.City,
		DealType:    req.DealType,
		Status:      req.Status,
		Rooms:       req.Rooms,
		Area:        req.Area,
		Price:       req.Price,
		RealtorID:   p.ID,
	}
	if ve := prop.Validate(); ve != nil {
		return writeError(c, ve)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Properties.Create(ctx, &prop); err != nil {
		return writeError(c, err)
	}
	audit(c, "created", "property", prop.ID, prop.Title)
	return c.JSON(http.StatusCreated, prop)
}

// List returns the catalog the caller is allowed to see. Visibility
// follows the three-tier scope: staff see everything, an explicit
// status filter is honored verbatim, everyone else gets active
// listings only. mine=true narrows to the caller's own rows and lifts
// the fallback.
func (h *PropertyHandler) List(c echo.Context) error {
	p := principal(c)
	scope := policy.PropertyScope(p, c.QueryParam("status"), policy.Truthy(c.QueryParam("mine")))
	return h.runList(c, scope)
}

// Catalog is the unauthenticated browse endpoint: always the anonymous
// scope, so only active listings show up regardless of query params.
func (h *PropertyHandler) Catalog(c echo.Context) error {
	scope := policy.PropertyScope(policy.Principal{}, "", false)
	return h.runList(c, scope)
}

// CatalogGet is the anonymous detail view. Anything that is not an
// active listing reads as missing.
func (h *PropertyHandler) CatalogGet(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if prop.Status != policy.StatusActive {
		return writeError(c, repository.ErrPropertyNotFound)
	}
	return c.JSON(http.StatusOK, prop)
}

func (h *PropertyHandler) runList(c echo.Context, scope policy.Predicate) error {
	var s repository.PropertySearch
	s.DealType = c.QueryParam("deal_type")
	s.District = c.QueryParam("district")
	s.City = c.QueryParam("city")
	s.Search = c.QueryParam("search")
	s.Ordering = c.QueryParam("ordering")
	if v := c.QueryParam("rooms"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.Rooms = &n
		}
	}
	for param, dst := range map[string]**float64{
		"price_min": &s.PriceMin,
		"price_max": &s.PriceMax,
		"area_min":  &s.AreaMin,
		"area_max":  &s.AreaMax,
	} {
		if v := c.QueryParam(param); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = &f
			}
		}
	}
	s.Limit, s.Offset = pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.Properties.Search(ctx, scope, s)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{Count: total, Results: items})
}

// Get returns a single property. Reads only require authentication;
// the catalog endpoint covers anonymous access.
func (h *PropertyHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), c.Request().Method, prop); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, prop)
}

// Update applies a partial update. The owning realtor never changes.
func (h *PropertyHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), c.Request().Method, prop); err != nil {
		return writeError(c, err)
	}

	var req propertyUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	applyString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	applyString(&prop.Title, req.Title)
	applyString(&prop.Description, req.Description)
	applyString(&prop.Address, req.Address)
	applyString(&prop.District, req.District)
	applyString(&prop.City, req.City)
	applyString(&prop.DealType, req.DealType)
	applyString(&prop.Status, req.Status)
	if req.Rooms != nil {
		prop.Rooms = *req.Rooms
	}
	if req.Area != nil {
		prop.Area = *req.Area
	}
	if req.Price != nil {
		prop.Price = *req.Price
	}
	if ve := prop.Validate(); ve != nil {
		return writeError(c, ve)
	}

	err = h.Properties.Update(ctx, prop)
	switch {
	case err == nil:
		audit(c, "updated", "property", prop.ID, "")
	case errors.Is(err, repository.ErrNoChange):
		// Idempotent PATCH: nothing changed, return current state.
	case errors.Is(err, sql.ErrNoRows):
		return writeError(c, repository.ErrPropertyNotFound)
	default:
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, prop)
}

// Delete removes a draft listing. The repository enforces draft-only
// and protect-on-delete; the returned blob handles are cleaned up from
// storage afterwards, best effort.
func (h *PropertyHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), c.Request().Method, prop); err != nil {
		return writeError(c, err)
	}

	handles, err := h.Properties.Delete(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	for _, handle := range handles {
		_ = h.Store.Delete(ctx, handle)
	}
	audit(c, "deleted", "property", id, prop.Title)
	return c.NoContent(http.StatusNoContent)
}

// UploadImage attaches an image to a listing. Only the owner or staff
// may upload; jpeg, png and webp up to 10 MB are accepted.
func (h *PropertyHandler) UploadImage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), http.MethodPost, prop); err != nil {
		return writeError(c, err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return writeError(c, repository.NewValidationError("image", "file required"))
	}
	if fh.Size > maxImageBytes {
		return writeError(c, repository.NewValidationError("image", "file exceeds 10MB"))
	}
	ct := fh.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedImageTypes[ct] {
		return writeError(c, repository.NewValidationError("image", "must be jpeg, png or webp"))
	}

	src, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer src.Close()

	handle, err := h.Store.Put(ctx, src, ct)
	if err != nil {
		return writeError(c, err)
	}
	img := repository.PropertyImage{
		PropertyID:  id,
		BlobHandle:  handle,
		ContentType: ct,
		SizeBytes:   fh.Size,
	}
	if err := h.Images.Create(ctx, &img); err != nil {
		_ = h.Store.Delete(ctx, handle)
		return writeError(c, err)
	}
	audit(c, "image_uploaded", "property", id, ct)
	return c.JSON(http.StatusCreated, img)
}

// ListImages returns the image references of a listing.
func (h *PropertyHandler) ListImages(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Properties.GetByID(ctx, id); err != nil {
		return writeError(c, err)
	}
	images, err := h.Images.ListByProperty(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if images == nil {
		images = []repository.PropertyImage{}
	}
	return c.JSON(http.StatusOK, images)
}

// GetImageFile streams the stored bytes of one image. There are no
// public URLs: bytes go out only to the owner or staff.
func (h *PropertyHandler) GetImageFile(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	imageID, err := pathID(c, "imageID")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	p := principal(c)
	if !p.Authenticated() {
		return writeError(c, policy.ErrUnauthenticated)
	}
	if !p.IsStaff() && prop.RealtorID != p.ID {
		return writeError(c, policy.ErrForbidden)
	}
	img, err := h.Images.GetByID(ctx, id, imageID)
	if err != nil {
		return writeError(c, err)
	}
	rc, ct, err := h.Store.Open(c.Request().Context(), img.BlobHandle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return writeError(c, repository.ErrImageNotFound)
		}
		return writeError(c, err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, ct, rc)
}

// DeleteImage removes one image reference and its stored bytes.
func (h *PropertyHandler) DeleteImage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	imageID, err := pathID(c, "imageID")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	prop, err := h.Properties.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := policy.Authorize(principal(c), http.MethodDelete, prop); err != nil {
		return writeError(c, err)
	}
	handle, err := h.Images.Delete(ctx, id, imageID)
	if err != nil {
		return writeError(c, err)
	}
	_ = h.Store.Delete(ctx, handle)
	audit(c, "image_deleted", "property", id, "")
	return c.NoContent(http.StatusNoContent)
}
