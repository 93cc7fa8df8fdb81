package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/repository"
	"github.com/LostFrxks/homy/internal/storage"
)

// maxDocumentBytes caps a single uploaded identity document at 10 MB.
const maxDocumentBytes = 10 << 20

var allowedDocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// KYCHandler bundles dependencies for identity verification endpoints.
type KYCHandler struct {
	KYC   *repository.KYCRepo
	Store *storage.Private
}

func NewKYCHandler(k *repository.KYCRepo, s *storage.Private) *KYCHandler {
	return &KYCHandler{KYC: k, Store: s}
}

type kycReviewReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Me returns the caller's profile, creating an empty pending one on
// first access.
func (h *KYCHandler) Me(c echo.Context) error {
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	k, err := h.KYC.EnsureForUser(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, k)
}

// UploadDocument stores one identity document into the named slot. An
// approved profile is immutable from the subject's side: uploads are
// rejected with a conflict. Uploading to a rejected profile sends it
// back to pending.
func (h *KYCHandler) UploadDocument(c echo.Context) error {
	p := principal(c)
	slot := c.Param("slot")

	ctx, cancel := reqCtx(c)
	defer cancel()
	k, err := h.KYC.EnsureForUser(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	if k.Status == repository.KYCApproved {
		return writeError(c, repository.ErrConflict)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, repository.NewValidationError("file", "file required"))
	}
	if fh.Size > maxDocumentBytes {
		return writeError(c, repository.NewValidationError("file", "file exceeds 10MB"))
	}
	ct := fh.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedDocumentTypes[ct] {
		return writeError(c, repository.NewValidationError("file", "must be jpeg, png, webp or pdf"))
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
	if err := h.KYC.SetDocument(ctx, p.ID, slot, handle); err != nil {
		_ = h.Store.Delete(ctx, handle)
		return writeError(c, err)
	}
	// Replaced documents keep their old blobs around; a janitor can
	// reap unreferenced handles offline.
	k, err = h.KYC.GetByUser(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	audit(c, "document_uploaded", "kyc_profile", k.ID, slot)
	return c.JSON(http.StatusOK, k)
}

// DownloadDocument streams a document from the caller's own profile.
func (h *KYCHandler) DownloadDocument(c echo.Context) error {
	p := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	k, err := h.KYC.GetByUser(ctx, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return h.streamDocument(c, k)
}

// DownloadDocumentFor streams a document from any profile, staff only.
func (h *KYCHandler) DownloadDocumentFor(c echo.Context) error {
	p := principal(c)
	if !p.IsStaff() {
		return writeError(c, policy.ErrForbidden)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	k, err := h.KYC.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return h.streamDocument(c, k)
}

func (h *KYCHandler) streamDocument(c echo.Context, k *repository.KYCProfile) error {
	var handle *string
	switch c.Param("slot") {
	case "doc_front":
		handle = k.DocFrontHandle
	case "doc_back":
		handle = k.DocBackHandle
	case "selfie":
		handle = k.SelfieHandle
	default:
		return writeError(c, repository.NewValidationError("slot", "must be doc_front, doc_back or selfie"))
	}
	if handle == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "document not uploaded"})
	}
	rc, ct, err := h.Store.Open(c.Request().Context(), *handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not uploaded"})
		}
		return writeError(c, err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, ct, rc)
}

// ListPending returns profiles awaiting review, oldest first. Staff
// only.
func (h *KYCHandler) ListPending(c echo.Context) error {
	p := principal(c)
	if !p.IsStaff() {
		return writeError(c, policy.ErrForbidden)
	}
	limit, offset := pageParams(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.KYC.ListPending(ctx, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []repository.KYCProfile{}
	}
	return c.JSON(http.StatusOK, items)
}

// Review records a staff decision on a profile. Rejections must carry
// a reason; approvals clear any previous one.
func (h *KYCHandler) Review(c echo.Context) error {
	p := principal(c)
	if !p.IsStaff() {
		return writeError(c, policy.ErrForbidden)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req kycReviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status == repository.KYCRejected && strings.TrimSpace(req.Reason) == "" {
		return writeError(c, repository.NewValidationError("reason", "required when rejecting"))
	}
	if req.Status == repository.KYCApproved {
		req.Reason = ""
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	k, err := h.KYC.Review(ctx, id, req.Status, req.Reason, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	audit(c, "reviewed", "kyc_profile", k.ID, req.Status)
	return c.JSON(http.StatusOK, k)
}
