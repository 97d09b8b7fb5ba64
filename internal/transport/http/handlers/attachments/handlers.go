package attachmentshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Store shared.AttachmentStore
	Audit *audit.Service
}

func NewHandler(store shared.AttachmentStore, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attachments", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/", h.handleUpload)
		r.Get("/{attachmentID}", h.handleDownload)
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !shared.IsMultipart(r) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "multipart form required", middleware.GetRequestID(r.Context()))
		return
	}
	if err := r.ParseMultipartForm(shared.MaxMultipartBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid multipart payload", middleware.GetRequestID(r.Context()))
		return
	}

	stored, err := shared.StoreUploads(r, h.Store, user.UserID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if len(stored) == 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "documents", Reason: "at least one file is required"}})
		return
	}
	for _, att := range stored {
		if err := h.Audit.Record(r.Context(), user.UserID, "attachment.upload", "attachment", att.ID, nil, att); err != nil {
			slog.Warn("audit attachment.upload failed", "err", err)
		}
	}
	api.Created(w, stored, middleware.GetRequestID(r.Context()))
}

// Uploaders may read their own files; approvers may read any file attached
// to a request they can review.
func canRead(actor auth.Actor, uploadedBy string) bool {
	if actor.UserID == uploadedBy || actor.HasOrgScope() {
		return true
	}
	for _, action := range []auth.Action{
		auth.ActLeaveApproveHOD,
		auth.ActLeaveApproveHR,
		auth.ActOvertimeApproveHOD,
		auth.ActOvertimeApproveFinance,
		auth.ActOvertimeApproveManagement,
	} {
		if actor.Can(action) {
			return true
		}
	}
	return false
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	att, data, err := h.Store.Get(r.Context(), chi.URLParam(r, "attachmentID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if !canRead(user.Actor(), att.UploadedBy) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
		return
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	api.File(w, contentType, att.FileName, data)
}
