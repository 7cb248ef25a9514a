// Public catalogue handlers.  These routes need no authentication; list
// responses are cached by the response cache middleware and seat maps by
// cache.SeatMaps.

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// EventCatalog is the read side of the event store.
type EventCatalog interface {
	Search(ctx context.Context, q repository.EventSearchQuery) ([]model.EventSummary, int64, error)
	GetByID(ctx context.Context, id uint64) (*model.EventSummary, error)
}

// SeatLister lists an event's seat map.
type SeatLister interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error)
}

// SeatMapCache caches seat maps; *cache.SeatMaps implements it and a nil
// pointer disables caching.
type SeatMapCache interface {
	Get(ctx context.Context, eventID uint64) ([]model.Seat, bool)
	Set(ctx context.Context, eventID uint64, seats []model.Seat) error
}

// CategoryLister returns the active categories.
type CategoryLister interface {
	ListActive(ctx context.Context) ([]model.Category, error)
}

// PublicHandler aggregates what unauthenticated browsing needs.
type PublicHandler struct {
	Categories CategoryLister
	Events     EventCatalog
	Seats      SeatLister
	SeatCache  SeatMapCache
}

func NewPublicHandler(categories CategoryLister, events EventCatalog, seats SeatLister, seatCache SeatMapCache) *PublicHandler {
	return &PublicHandler{Categories: categories, Events: events, Seats: seats, SeatCache: seatCache}
}

// ListCategories lists active categories with their event counts.
func (h *PublicHandler) ListCategories(c echo.Context) error {
	items, err := h.Categories.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "categories", items, len(items))
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t.UTC(), err
}

// searchQuery builds the event filter from query parameters.
func searchQuery(c echo.Context) (repository.EventSearchQuery, error) {
	q := repository.EventSearchQuery{
		Search: strings.TrimSpace(c.QueryParam("search")),
		SortBy: strings.TrimSpace(c.QueryParam("sort_by")),
		Page:   1,
		Limit:  defaultPageSize,
	}
	if v := c.QueryParam("category"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return q, invalidParam("category")
		}
		q.CategoryID = id
	}
	for name, dst := range map[string]**time.Time{"date_from": &q.DateFrom, "date_to": &q.DateTo} {
		if v := c.QueryParam(name); v != "" {
			t, err := parseDate(v)
			if err != nil {
				return q, invalidParam(name)
			}
			*dst = &t
		}
	}
	for name, dst := range map[string]**model.Money{"min_price": &q.MinPrice, "max_price": &q.MaxPrice} {
		if v := c.QueryParam(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return q, invalidParam(name)
			}
			m := model.FromFloat(f)
			*dst = &m
		}
	}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, invalidParam("page")
		}
		q.Page = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, invalidParam("limit")
		}
		q.Limit = min(n, maxPageSize)
	}
	return q, nil
}

func invalidParam(name string) error {
	return &paramError{name: name}
}

type paramError struct{ name string }

func (e *paramError) Error() string { return "invalid " + e.name }

// SearchEvents lists active events matching the filters, paginated.
func (h *PublicHandler) SearchEvents(c echo.Context) error {
	q, err := searchQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	items, total, err := h.Events.Search(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	pages := (total + int64(q.Limit) - 1) / int64(q.Limit)
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(items),
		"total":   total,
		"page":    q.Page,
		"pages":   pages,
		"data":    echo.Map{"events": items},
	})
}

// GetEvent returns one active event.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	ev, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if !ev.IsActive {
		return respondError(c, model.ErrEventNotFound)
	}
	return success(c, http.StatusOK, echo.Map{"event": ev})
}

// EventSeats returns the seat map of an event, served from Redis when
// cached.
func (h *PublicHandler) EventSeats(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	ctx := c.Request().Context()
	if h.SeatCache != nil {
		if seats, hit := h.SeatCache.Get(ctx, id); hit {
			c.Response().Header().Set("X-Cache", "HIT")
			return list(c, "seats", seats, len(seats))
		}
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ev.IsActive {
		return respondError(c, model.ErrEventNotFound)
	}
	seats, err := h.Seats.ListByEvent(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if h.SeatCache != nil {
		if err := h.SeatCache.Set(ctx, id, seats); err != nil {
			log.Warn().Err(err).Uint64("event_id", id).Msg("seat map cache write failed")
		}
	}
	return list(c, "seats", seats, len(seats))
}
