package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/handler"    // handlers that implement the endpoints
	"github.com/iliyamo/event-ticketing/internal/middleware" // JWT authentication and role enforcement
)

// RegisterRoutes registers the health endpoints.  /healthz only proves the
// process is up; /readyz checks MySQL and Redis.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db, rdb))
}

// RegisterAuth registers the authentication routes.  Operations that
// create or exchange a session live under /v1/auth without a JWT; the
// profile endpoints require one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// refresh and logout read the refresh_token cookie or JSON body
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password/:token", a.ResetPassword)

	me := g.Group("/me", middleware.JWTAuth(jwtSecret))
	me.GET("", a.Me)
	me.PATCH("", a.UpdateMe)
	me.POST("/password", a.ChangePassword)
}

// RegisterPublic registers the unauthenticated catalogue.  cache is
// applied to the listing and detail routes; the seat map has its own
// cache that is invalidated on every booking change.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/categories", p.ListCategories, cache)
	g.GET("/events", p.SearchEvents, cache)
	g.GET("/events/:id", p.GetEvent, cache)
	g.GET("/events/:id/seats", p.EventSeats)
}
