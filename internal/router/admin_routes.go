package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterAdmin registers the /v1/admin endpoints.  Every route requires
// the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.GET("/users", a.ListUsers)
	g.POST("/users", a.CreateUser)
	g.GET("/users/:id", a.GetUser)
	g.PATCH("/users/:id", a.UpdateUser)
	g.DELETE("/users/:id", a.DeleteUser)

	g.GET("/events", a.ListEvents)
	g.PATCH("/events/:id/toggle-status", a.ToggleEvent)
	g.DELETE("/events/:id", a.DeleteEvent)
	g.GET("/events/:id/bookings", b.ByEvent)

	g.GET("/bookings", b.All)
	g.PATCH("/bookings/:id", b.UpdateStatus)

	g.GET("/categories", a.ListCategories)
	g.POST("/categories", a.CreateCategory)
	g.GET("/categories/:id", a.GetCategory)
	g.PUT("/categories/:id", a.UpdateCategory)
	g.DELETE("/categories/:id", a.DeleteCategory)
	g.PATCH("/categories/:id/toggle-status", a.ToggleCategory)

	g.GET("/dashboard", a.Dashboard)
	g.GET("/reports", a.RevenueReport)
}
