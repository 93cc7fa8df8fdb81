// Package handler implements the HTTP endpoints. Handlers stay thin:
// they parse input, build the caller's principal, delegate to the
// policy and repository layers and translate sentinel errors into
// status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/LostFrxks/homy/internal/policy"
	"github.com/LostFrxks/homy/internal/queue"
	"github.com/LostFrxks/homy/internal/repository"
	queuepub "github.com/LostFrxks/homy/internal/service"
)

// dbTimeout bounds every database call issued from a handler.
const dbTimeout = 5 * time.Second

// principal builds the caller identity from the claims the JWT
// middleware stored in context. JWT numeric claims decode as float64;
// string subjects are parsed as a fallback. An empty principal (ID 0)
// means the request is anonymous.
func principal(c echo.Context) policy.Principal {
	var p policy.Principal
	switch v := c.Get("user_id").(type) {
	case float64:
		p.ID = uint64(v)
	case uint64:
		p.ID = v
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			p.ID = n
		}
	}
	if r, ok := c.Get("role").(string); ok {
		p.Role = r
	}
	return p
}

// reqCtx derives the bounded context used for repository calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// pageParams reads limit/offset from the query string. Bounds are
// enforced again by the repositories.
func pageParams(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}

// writeError maps the error taxonomy onto HTTP responses. Validation
// failures render the per-field object; everything unknown becomes an
// opaque 500.
func writeError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	if ve, ok := repository.AsValidation(err); ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": ve.Fields})
	}
	switch {
	case errors.Is(err, policy.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	case errors.Is(err, policy.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrPropertyNotFound),
		errors.Is(err, repository.ErrDealNotFound),
		errors.Is(err, repository.ErrShowingNotFound),
		errors.Is(err, repository.ErrSavedSearchNotFound),
		errors.Is(err, repository.ErrKYCProfileNotFound),
		errors.Is(err, repository.ErrImageNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// audit publishes a mutation event to the broker. Publishing is fire
// and forget: a dead broker never fails the request that already
// committed.
func audit(c echo.Context, action, entity string, objectID uint64, message string) {
	ev := queue.AuditEvent{
		Action:   action,
		Entity:   entity,
		ObjectID: strconv.FormatUint(objectID, 10),
		ActorID:  principal(c).ID,
		IP:       c.RealIP(),
		Method:   c.Request().Method,
		Path:     c.Request().URL.Path,
		Message:  message,
		At:       time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		_ = queuepub.PublishAudit(ctx, ev)
	}()
}

// listResponse is the uniform paginated envelope.
type listResponse struct {
	Count   int64 `json:"count"`
	Results any   `json:"results"`
}
