package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is a simple health-check endpoint used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready pings the store and, when configured, Redis.  Redis being down
// degrades caching only, so it is reported but does not fail the check.
func Ready(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		out := echo.Map{"database": "up", "redis": "disabled"}
		if err := db.PingContext(ctx); err != nil {
			out["database"] = "down"
			return c.JSON(http.StatusServiceUnavailable, out)
		}
		if rdb != nil {
			out["redis"] = "up"
			if err := rdb.Ping(ctx).Err(); err != nil {
				out["redis"] = "down"
			}
		}
		return c.JSON(http.StatusOK, out)
	}
}
