package holidayshandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/calendar"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service *calendar.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *calendar.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holidays", func(r chi.Router) {
		r.With(middleware.RequireUser).Get("/", h.handleList)
		r.With(middleware.RequireUser).Get("/classify", h.handleClassify)
		r.With(middleware.RequireUser).Get("/working-days", h.handleWorkingDays)
		r.With(middleware.RequirePermission(auth.ActHolidaysManage, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.ActHolidaysManage, h.Perms)).Put("/{holidayID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.ActHolidaysManage, h.Perms)).Delete("/{holidayID}", h.handleDelete)
	})
}

type holidayPayload struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Location  string `json:"location"`
	Recurring bool   `json:"recurring"`
}

var locations = []string{string(calendar.LocationA), string(calendar.LocationB), string(calendar.LocationBoth)}

func (p holidayPayload) validate() (calendar.PublicHoliday, *shared.Validator) {
	v := shared.NewValidator()
	v.Required("name", p.Name, "is required")
	date, _ := v.Date("date", p.Date)
	v.Required("location", p.Location, "is required")
	v.Enum("location", p.Location, locations, "must be location_a, location_b or both")
	return calendar.PublicHoliday{
		Name:      strings.TrimSpace(p.Name),
		Date:      date,
		Location:  calendar.Location(strings.ToLower(strings.TrimSpace(p.Location))),
		Recurring: p.Recurring,
	}, v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "year", Reason: "must be a four digit year"}})
			return
		}
		year = parsed
	}
	out, err := h.Service.List(r.Context(), year)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if out == nil {
		out = []calendar.PublicHoliday{}
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	date, _ := v.Date("date", r.URL.Query().Get("date"))
	location := r.URL.Query().Get("location")
	if location == "" {
		location = string(calendar.LocationA)
	}
	v.Enum("location", location, locations, "must be location_a, location_b or both")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	out, err := h.Service.ClassifyFor(r.Context(), date, calendar.Location(location))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWorkingDays(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	from, _ := v.Date("from", r.URL.Query().Get("from"))
	to, _ := v.Date("to", r.URL.Query().Get("to"))
	v.DateOrder("from", from, "to", to)
	location := r.URL.Query().Get("location")
	if location == "" {
		location = string(calendar.LocationA)
	}
	v.Enum("location", location, locations, "must be location_a, location_b or both")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	days, err := h.Service.WorkingDays(r.Context(), from, to, calendar.Location(location))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"from":        from.Format(time.DateOnly),
		"to":          to.Format(time.DateOnly),
		"location":    location,
		"workingDays": days,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	holiday, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.Actor(), holiday)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "holiday.create", "public_holiday", created.ID, nil, created); err != nil {
		slog.Warn("audit holiday.create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	holiday, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	holiday.ID = chi.URLParam(r, "holidayID")

	before, err := h.Service.Get(r.Context(), holiday.ID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	updated, err := h.Service.Update(r.Context(), user.Actor(), holiday)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "holiday.update", "public_holiday", updated.ID, before, updated); err != nil {
		slog.Warn("audit holiday.update failed", "err", err)
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	holidayID := chi.URLParam(r, "holidayID")
	before, err := h.Service.Get(r.Context(), holidayID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), user.Actor(), holidayID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "holiday.delete", "public_holiday", holidayID, before, nil); err != nil {
		slog.Warn("audit holiday.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}
