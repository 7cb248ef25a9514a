package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// BookingManager performs booking writes; *service.BookingService
// implements it.
type BookingManager interface {
	Create(ctx context.Context, in service.CreateBookingInput) (*model.BookingDetail, error)
	UpdateStatus(ctx context.Context, bookingID uint64, to model.BookingStatus) (*model.BookingDetail, error)
	CancelByUser(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error)
}

// BookingLister reads joined booking views; *repository.BookingRepo
// implements it.
type BookingLister interface {
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.BookingDetail, error)
	ListAll(ctx context.Context) ([]model.BookingDetail, error)
}

// BookingHandler serves the user booking endpoints and the admin status
// update.
type BookingHandler struct {
	Service  BookingManager
	Bookings BookingLister
}

func NewBookingHandler(svc BookingManager, bookings BookingLister) *BookingHandler {
	return &BookingHandler{Service: svc, Bookings: bookings}
}

type createBookingReq struct {
	EventID       uint64      `json:"event_id"`
	SeatIDs       []uint64    `json:"seat_ids"`
	TotalAmount   model.Money `json:"total_amount"`
	PaymentMethod string      `json:"payment_method"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// Create books seats for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	d, err := h.Service.Create(c.Request().Context(), service.CreateBookingInput{
		UserID:        uid,
		EventID:       req.EventID,
		SeatIDs:       req.SeatIDs,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, echo.Map{"booking": d})
}

// Mine lists the caller's bookings, newest first.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "bookings", items, len(items))
}

// Get returns one of the caller's bookings.  Admins may read any.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	d, err := h.Bookings.GetDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if d.UserID != uid && middleware.Role(c) != model.RoleAdmin {
		return respondError(c, repository.ErrForbidden)
	}
	return success(c, http.StatusOK, echo.Map{"booking": d})
}

// Cancel cancels one of the caller's bookings.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	d, err := h.Service.CancelByUser(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"booking": d})
}

// UpdateStatus is the admin endpoint moving a booking between pending,
// confirmed and cancelled.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	to, err := model.ParseBookingStatus(req.Status)
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.Service.UpdateStatus(c.Request().Context(), id, to)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"booking": d})
}

// All lists every booking for admins.
func (h *BookingHandler) All(c echo.Context) error {
	items, err := h.Bookings.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "bookings", items, len(items))
}

// ByEvent lists the bookings of one event for admins.
func (h *BookingHandler) ByEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	items, err := h.Bookings.ListByEvent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "bookings", items, len(items))
}
