package handler // handler defines http handlers

import (
	"errors"   // errors.Is maps sentinel errors to status codes
	"net/http" // status codes
	"strconv"  // path parameter parsing

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

// success wraps data in the {"status":"success","data":...} envelope.
func success(c echo.Context, code int, data any) error {
	return c.JSON(code, echo.Map{"status": "success", "data": data})
}

// list is success with a results count next to the items.
func list(c echo.Context, key string, items any, n int) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "results": n, "data": echo.Map{key: items}})
}

// statusFor maps domain and store errors to HTTP status codes.  Unknown
// errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrEventInactive),
		errors.Is(err, model.ErrInsufficientSeats),
		errors.Is(err, model.ErrAvailabilityOverflow):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrEventNotFound),
		errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSeatUnavailable),
		errors.Is(err, model.ErrConcurrentUpdate),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrNameExists):
		return http.StatusConflict
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrTokenInvalid), errors.Is(err, utils.ErrInvalidToken), errors.Is(err, errNoUser):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes the {"error": ...} envelope for err.  Server errors
// are logged with the request id.  A failed booking transaction answers
// with its operation-failed message; other server errors get a generic one.
func respondError(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		rid, _ := c.Get("request_id").(string)
		log.Error().Err(err).Str("request_id", rid).Str("path", c.Path()).Msg("request failed")
		if errors.Is(err, model.ErrOperationFailed) {
			return c.JSON(code, echo.Map{"error": err.Error()})
		}
		return c.JSON(code, echo.Map{"error": "internal server error"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}
