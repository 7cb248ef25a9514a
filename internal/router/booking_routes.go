package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterBookings registers the booking endpoints for signed-in users of
// any role.  limit throttles booking creation separately from the global
// limiter.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleOrganizer, model.RoleAdmin),
	)
	g.POST("", h.Create, limit)
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel)
}
