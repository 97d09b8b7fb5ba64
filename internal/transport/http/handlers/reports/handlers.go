package reportshandler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/reports"
	"timesheet/internal/transport/http/api"
	variancehandler "timesheet/internal/transport/http/handlers/variance"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequireUser).Get("/overtime/{requestID}/claim.pdf", h.handleClaimPDF)
		r.With(middleware.RequirePermission(auth.ActReportsExport, h.Perms)).Get("/variance.xlsx", h.handleVarianceWorkbook)
	})
}

func (h *Handler) handleClaimPDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")
	data, fileName, err := h.Service.ClaimPDF(r.Context(), user.Actor(), requestID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "reports.overtime_claim.export", "overtime_request", requestID, nil, map[string]string{"file": fileName}); err != nil {
		slog.Warn("audit reports.overtime_claim.export failed", "err", err)
	}
	api.File(w, contentTypePDF, fileName, data)
}

func (h *Handler) handleVarianceWorkbook(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	year, month, v := variancehandler.ParseMonth(r)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))

	data, fileName, err := h.Service.VarianceWorkbook(r.Context(), user.Actor(), year, month, projectID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "reports.variance.export", "variance", "", nil, map[string]any{
		"year": year, "month": month, "projectId": projectID,
	}); err != nil {
		slog.Warn("audit reports.variance.export failed", "err", err)
	}
	api.File(w, contentTypeXLSX, fileName, data)
}
