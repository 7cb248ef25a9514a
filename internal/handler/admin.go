package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

const defaultReportWindow = 30 * 24 * time.Hour

// AdminHandler serves the /v1/admin user, event, category and report
// endpoints.  Booking administration lives on BookingHandler.
type AdminHandler struct {
	Cfg        config.Config
	Users      *repository.UserRepo
	Events     *repository.EventRepo
	Categories *repository.CategoryRepo
	Reports    *repository.ReportRepo
	caches     catalogueInvalidator
}

func NewAdminHandler(cfg config.Config, users *repository.UserRepo, events *repository.EventRepo,
	categories *repository.CategoryRepo, reports *repository.ReportRepo,
	responses ResponsePurger, seats SeatInvalidator) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: users, Events: events, Categories: categories, Reports: reports,
		caches: catalogueInvalidator{Responses: responses, Seats: seats}}
}

// ----- users -----

type adminCreateUserReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

type adminUpdateUserReq struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	items, err := h.Users.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "users", items, len(items))
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"user": u})
}

// CreateUser creates an account with any role.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req adminCreateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if strings.TrimSpace(req.Name) == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a valid email are required"})
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	id, err := h.Users.Create(ctx, repository.NewUser{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password, Role: req.Role,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, echo.Map{"user": u})
}

// UpdateUser changes role and active flag.  Admins cannot deactivate or
// demote themselves.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	self, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	var req adminUpdateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if id == self {
		if req.IsActive != nil && !*req.IsActive {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot deactivate your own account"})
		}
		if req.Role != nil && *req.Role != model.RoleAdmin {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot change your own role"})
		}
	}
	ctx := c.Request().Context()
	if err := h.Users.UpdateRoleActive(ctx, id, req.Role, req.IsActive); err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"user": u})
}

// DeleteUser removes a user and everything they own.  The caller and the
// last remaining admin cannot be deleted.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	self, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	if id == self {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot delete your own account"})
	}
	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if u.Role == model.RoleAdmin {
		n, err := h.Users.CountByRole(ctx, model.RoleAdmin)
		if err != nil {
			return respondError(c, err)
		}
		if n <= 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete the last admin"})
		}
	}
	if err := h.Users.DeleteCascade(ctx, id); err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, 0)
	log.Info().Uint64("user_id", id).Uint64("by", self).Msg("user deleted")
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "user deleted"})
}

// ----- events -----

func (h *AdminHandler) ListEvents(c echo.Context) error {
	items, err := h.Events.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "events", items, len(items))
}

func (h *AdminHandler) ToggleEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	ctx := c.Request().Context()
	active, err := h.Events.ToggleActive(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, id)
	return success(c, http.StatusOK, echo.Map{"id": id, "is_active": active})
}

func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event")
	}
	ctx := c.Request().Context()
	if err := h.Events.Delete(ctx, id, 0, true); err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, id)
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "event deleted"})
}

// ----- categories -----

type categoryReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

func (r categoryReq) toModel() (*model.Category, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, errors.New("name is required")
	}
	return &model.Category{Name: r.Name, Description: r.Description, ImageURL: r.ImageURL}, nil
}

func (h *AdminHandler) ListCategories(c echo.Context) error {
	items, err := h.Categories.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return list(c, "categories", items, len(items))
}

func (h *AdminHandler) GetCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "category")
	}
	cat, err := h.Categories.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"category": cat})
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	cat, err := h.Categories.Create(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, 0)
	return success(c, http.StatusCreated, echo.Map{"category": cat})
}

func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "category")
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	cat, err := h.Categories.Update(ctx, id, in)
	if err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, 0)
	return success(c, http.StatusOK, echo.Map{"category": cat})
}

func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "category")
	}
	ctx := c.Request().Context()
	if err := h.Categories.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, 0)
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "category deleted"})
}

func (h *AdminHandler) ToggleCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "category")
	}
	ctx := c.Request().Context()
	active, err := h.Categories.ToggleActive(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	h.caches.changed(ctx, 0)
	return success(c, http.StatusOK, echo.Map{"id": id, "is_active": active})
}

// ----- reporting -----

func (h *AdminHandler) Dashboard(c echo.Context) error {
	d, err := h.Reports.Dashboard(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, d)
}

// reportWindow reads start_date and end_date (YYYY-MM-DD), defaulting to
// the last 30 days.
func reportWindow(c echo.Context, now time.Time) (time.Time, time.Time, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	start := end.Add(-defaultReportWindow)
	if v := c.QueryParam("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return start, end, invalidParam("start_date")
		}
		start = t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return start, end, invalidParam("end_date")
		}
		end = t
	}
	if start.After(end) {
		return start, end, errors.New("start_date must not be after end_date")
	}
	return start, end, nil
}

// RevenueReport returns revenue and ranking aggregates for confirmed bookings
// in the requested window.
func (h *AdminHandler) RevenueReport(c echo.Context) error {
	from, to, err := reportWindow(c, time.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	r, err := h.Reports.Report(c.Request().Context(), from, to)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, r)
}
