package variancehandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/variance"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service *variance.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *variance.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/variance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActVarianceRead, h.Perms)).Get("/me", h.handleMine)
		r.With(middleware.RequirePermission(auth.ActVarianceRead, h.Perms)).Get("/employees/{employeeID}", h.handleEmployee)
		r.With(middleware.RequirePermission(auth.ActVarianceTeam, h.Perms)).Get("/team", h.handleTeam)
		r.With(middleware.RequirePermission(auth.ActVarianceRead, h.Perms)).Get("/projects/{projectID}", h.handleProject)
	})
}

// ParseMonth reads year and month query parameters, defaulting to the
// current UTC month.
func ParseMonth(r *http.Request) (int, int, *shared.Validator) {
	v := shared.NewValidator()
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			v.Add("year", "must be a four digit year")
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			v.Add("month", "must be between 1 and 12")
		}
		month = parsed
	}
	return year, month, v
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	h.employee(w, r, "")
}

func (h *Handler) handleEmployee(w http.ResponseWriter, r *http.Request) {
	h.employee(w, r, chi.URLParam(r, "employeeID"))
}

func (h *Handler) employee(w http.ResponseWriter, r *http.Request, employeeID string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	year, month, v := ParseMonth(r)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	out, err := h.Service.EmployeeMonth(r.Context(), user.Actor(), employeeID, year, month)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	year, month, v := ParseMonth(r)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	out, err := h.Service.Team(r.Context(), user.Actor(), year, month)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if out == nil {
		out = []variance.EmployeeMonth{}
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	out, err := h.Service.ByTask(r.Context(), user.Actor(), chi.URLParam(r, "projectID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}
