package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

const maxSeatsPerEvent = 10000

// ResponsePurger drops cached catalogue responses.
type ResponsePurger interface {
	Purge(ctx context.Context) (int, error)
}

// SeatInvalidator drops an event's cached seat map.
type SeatInvalidator interface {
	Invalidate(ctx context.Context, eventID uint64) error
}

// catalogueInvalidator drops caches that show event data after a write.
// Failures only cost staleness until the TTL expires.
type catalogueInvalidator struct {
	Responses ResponsePurger
	Seats     SeatInvalidator
}

func (ci catalogueInvalidator) changed(ctx context.Context, eventID uint64) {
	ctx = context.WithoutCancel(ctx)
	if ci.Responses != nil {
		if _, err := ci.Responses.Purge(ctx); err != nil {
			log.Warn().Err(err).Msg("response cache purge failed")
		}
	}
	if ci.Seats != nil && eventID != 0 {
		if err := ci.Seats.Invalidate(ctx, eventID); err != nil {
			log.Warn().Err(err).Uint64("event_id", eventID).Msg("seat map invalidation failed")
		}
	}
}

// OrganizerHandler manages an organizer's own events.  Admins pass the
// ownership checks.
type OrganizerHandler struct {
	Events   *repository.EventRepo
	Bookings BookingLister
	caches   catalogueInvalidator
}

func NewOrganizerHandler(events *repository.EventRepo, bookings BookingLister, responses ResponsePurger, seats SeatInvalidator) *OrganizerHandler {
	return &OrganizerHandler{Events: events, Bookings: bookings,
		caches: catalogueInvalidator{Responses: responses, Seats: seats}}
}

type createEventReq struct {
	CategoryID  *uint64     `json:"category_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	EventDate   time.Time   `json:"event_date"`
	Price       model.Money `json:"price"`
	TotalSeats  int         `json:"total_seats"`
	VIPSeats    int         `json:"vip_seats"`
	IsActive    *bool       `json:"is_active"`
}

type updateEventReq struct {
	CategoryID  *uint64      `json:"category_id"`
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Location    *string      `json:"location"`
	EventDate   *time.Time   `json:"event_date"`
	Price       *model.Money `json:"price"`
	TotalSeats  *int         `json:"total_seats"`
	IsActive    *bool        `json:"is_active"`
}

func (r createEventReq) validate(now time.Time) string {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "title is required"
	case strings.TrimSpace(r.Location) == "":
		return "location is required"
	case r.EventDate.IsZero():
		return "event_date is required"
	case !r.EventDate.After(now):
		return "event_date must be in the future"
	case r.Price < 0:
		return "price must not be negative"
	case r.TotalSeats < 1 || r.TotalSeats > maxSeatsPerEvent:
		return "total_seats must be between 1 and 10000"
	case r.VIPSeats < 0 || r.VIPSeats > r.TotalSeats:
		return "vip_seats must be between 0 and total_seats"
	}
	return ""
}

func (r updateEventReq) validate() string {
	switch {
	case r.Title != nil && strings.TrimSpace(*r.Title) == "":
		return "title cannot be empty"
	case r.Location != nil && strings.TrimSpace(*r.Location) == "":
		return "location cannot be empty"
	case r.Price != nil && *r.Price < 0:
		return "price must not be negative"
	case r.TotalSeats != nil && (*r.TotalSeats < 1 || *r.TotalSeats > maxSeatsPerEvent):
		return "total_seats must be between 1 and 10000"
	}
	return ""
}

// ListEvents returns the caller's events.
func (h *OrganizerHandler) ListEvents(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.Events.ListByOrganizer(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "events", items, len(items))
}

// CreateEvent creates an event and its seat map.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(time.Now()); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ev := &model.Event{
		OrganizerID: uid,
		CategoryID:  req.CategoryID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		EventDate:   req.EventDate,
		Price:       req.Price,
		TotalSeats:  req.TotalSeats,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	ctx := c.Request().Context()
	if err := h.Events.CreateWithSeats(ctx, ev, req.VIPSeats); err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, 0)
	log.Info().Uint64("event_id", ev.ID).Uint64("organizer_id", uid).Int("seats", ev.TotalSeats).Msg("event created")
	return success(c, http.StatusCreated, echo.Map{"event": ev})
}

// UpdateEvent applies a partial update.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	ev, err := h.Events.Update(ctx, id, uid, middleware.Role(c) == model.RoleAdmin, repository.EventPatch{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		EventDate:   req.EventDate,
		Price:       req.Price,
		TotalSeats:  req.TotalSeats,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, id)
	return success(c, http.StatusOK, echo.Map{"event": ev})
}

// DeleteEvent removes an event without live bookings.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	ctx := c.Request().Context()
	if err := h.Events.Delete(ctx, id, uid, middleware.Role(c) == model.RoleAdmin); err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, id)
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "event deleted"})
}

// EventBookings lists the bookings of one of the caller's events.
func (h *OrganizerHandler) EventBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	ctx := c.Request().Context()
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if ev.OrganizerID != uid && middleware.Role(c) != model.RoleAdmin {
		return respondError(c, repository.ErrForbidden)
	}
	items, err := h.Bookings.ListByEvent(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "bookings", items, len(items))
}
