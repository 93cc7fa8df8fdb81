package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/LostFrxks/homy/internal/handler"    // handlers implementing the endpoints
	"github.com/LostFrxks/homy/internal/middleware" // JWT authentication and role enforcement
	"github.com/LostFrxks/homy/internal/policy"     // role constants
)

// RegisterRoutes registers routes that require neither authentication
// nor rate limiting. Currently that is only the health check used by
// load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the session endpoints under /v1/auth. The
// limiter middleware (a Redis token bucket) is applied to the whole
// group so credential guessing and reset-code probing are throttled.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
}

// RegisterCatalog mounts the anonymous browse endpoints. Responses are
// served through the Redis cache middleware since the public catalog
// only ever exposes active listings.
func RegisterCatalog(e *echo.Echo, p *handler.PropertyHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/catalog", p.Catalog, cache)
	e.GET("/v1/catalog/:id", p.CatalogGet, cache)
}

// APIHandlers groups the protected resource handlers for registration.
type APIHandlers struct {
	Auth       *handler.AuthHandler
	Properties *handler.PropertyHandler
	Deals      *handler.DealHandler
	Showings   *handler.ShowingHandler
	Favorites  *handler.FavoriteHandler
	Searches   *handler.SavedSearchHandler
	KYC        *handler.KYCHandler
}

// RegisterAPI mounts every protected endpoint under /v1. All routes
// require a valid access token and one of the brokerage roles; the
// finer-grained visibility scopes and ownership checks live inside the
// handlers.
func RegisterAPI(e *echo.Echo, jwtSecret string, h APIHandlers) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(policy.RoleAdmin, policy.RoleManager, policy.RoleRealtor))

	v1.GET("/me", h.Auth.Me)

	v1.POST("/properties", h.Properties.Create)
	v1.GET("/properties", h.Properties.List)
	v1.GET("/properties/:id", h.Properties.Get)
	v1.PATCH("/properties/:id", h.Properties.Update)
	v1.PUT("/properties/:id", h.Properties.Update)
	v1.DELETE("/properties/:id", h.Properties.Delete)

	v1.POST("/properties/:id/images", h.Properties.UploadImage)
	v1.GET("/properties/:id/images", h.Properties.ListImages)
	v1.GET("/properties/:id/images/:imageID/file", h.Properties.GetImageFile)
	v1.DELETE("/properties/:id/images/:imageID", h.Properties.DeleteImage)

	v1.POST("/properties/:id/favorite", h.Favorites.Toggle)
	v1.GET("/favorites", h.Favorites.List)

	v1.POST("/deals", h.Deals.Create)
	v1.GET("/deals", h.Deals.List)
	v1.GET("/deals/:id", h.Deals.Get)
	v1.PATCH("/deals/:id", h.Deals.Update)
	v1.PUT("/deals/:id", h.Deals.Update)
	v1.DELETE("/deals/:id", h.Deals.Delete)

	v1.POST("/showings", h.Showings.Create)
	v1.GET("/showings", h.Showings.List)
	v1.GET("/showings/:id", h.Showings.Get)
	v1.PATCH("/showings/:id", h.Showings.Update)
	v1.PUT("/showings/:id", h.Showings.Update)
	v1.DELETE("/showings/:id", h.Showings.Delete)

	v1.POST("/saved-searches", h.Searches.Create)
	v1.GET("/saved-searches", h.Searches.List)
	v1.GET("/saved-searches/:id", h.Searches.Get)
	v1.DELETE("/saved-searches/:id", h.Searches.Delete)
	v1.GET("/saved-searches/:id/run", h.Searches.Run)

	v1.GET("/kyc/me", h.KYC.Me)
	v1.POST("/kyc/me/documents/:slot", h.KYC.UploadDocument)
	v1.GET("/kyc/me/documents/:slot", h.KYC.DownloadDocument)
	v1.GET("/kyc/pending", h.KYC.ListPending)
	v1.POST("/kyc/:id/review", h.KYC.Review)
	v1.GET("/kyc/:id/documents/:slot", h.KYC.DownloadDocumentFor)
}
