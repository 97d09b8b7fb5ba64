package overtimehandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/overtime"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service     *overtime.Service
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Attachments shared.AttachmentStore
	Metrics     shared.TransitionRecorder
}

func NewHandler(service *overtime.Service, perms middleware.PermissionStore, auditSvc *audit.Service, attachments shared.AttachmentStore, metrics shared.TransitionRecorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Attachments: attachments, Metrics: metrics}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overtime", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActOvertimeSubmit, h.Perms)).Get("/preview", h.handlePreview)
		r.With(middleware.RequirePermission(auth.ActOvertimeSubmit, h.Perms)).Get("/requests", h.handleListMine)
		r.With(middleware.RequireUser).Get("/requests/pending", h.handleListPending)
		r.With(middleware.RequirePermission(auth.ActOvertimeSubmit, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequireUser).Get("/requests/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.ActOvertimeApproveHOD, h.Perms)).Post("/requests/{requestID}/approve-hod", h.handleApproveHOD)
		r.With(middleware.RequirePermission(auth.ActOvertimeApproveFinance, h.Perms)).Post("/requests/{requestID}/approve-finance", h.handleApproveFinance)
		r.With(middleware.RequirePermission(auth.ActOvertimeApproveManagement, h.Perms)).Post("/requests/{requestID}/approve-management", h.handleApproveManagement)
		r.With(middleware.RequireUser).Post("/requests/{requestID}/reject", h.handleReject)
	})
}

func parsePeriod(r *http.Request) (overtime.Period, *shared.Validator) {
	v := shared.NewValidator()
	year, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year")))
	if err != nil {
		v.Add("year", "must be a four digit year")
	}
	half := overtime.Half(strings.TrimSpace(r.URL.Query().Get("half")))
	if !half.IsValid() {
		v.Add("half", "must be first_half or second_half")
	}
	return overtime.Period{Year: year, Half: half}, v
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, v := parsePeriod(r)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	entries, breakdown, err := h.Service.Preview(r.Context(), user.Actor(), period)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if entries == nil {
		entries = []overtime.Entry{}
	}
	api.Success(w, map[string]any{
		"period":    period,
		"entries":   entries,
		"breakdown": breakdown,
	}, middleware.GetRequestID(r.Context()))
}

type submitPayload struct {
	Year              int      `json:"year"`
	Half              string   `json:"half"`
	Notes             string   `json:"notes"`
	AttachmentIDs     []string `json:"attachmentIds"`
	TimesheetEntryIDs []string `json:"timesheetEntryIds"`
}

// decodeSubmit validates the payload before any upload is stored. The
// returned uploads belong to this request only and are discarded by the
// caller if the submission is refused.
func (h *Handler) decodeSubmit(r *http.Request, userID string) (overtime.SubmitInput, []core.Attachment, *shared.Validator, error) {
	var payload submitPayload
	if shared.IsMultipart(r) {
		if err := r.ParseMultipartForm(shared.MaxMultipartBytes); err != nil {
			return overtime.SubmitInput{}, nil, nil, errs.Invalid("body", "invalid multipart payload")
		}
		year, err := strconv.Atoi(strings.TrimSpace(r.FormValue("year")))
		if err != nil {
			return overtime.SubmitInput{}, nil, nil, errs.Invalid("year", "must be a four digit year")
		}
		payload = submitPayload{
			Year:              year,
			Half:              strings.TrimSpace(r.FormValue("half")),
			Notes:             strings.TrimSpace(r.FormValue("notes")),
			AttachmentIDs:     shared.SplitList(r.FormValue("attachmentIds")),
			TimesheetEntryIDs: shared.SplitList(r.FormValue("timesheetEntryIds")),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return overtime.SubmitInput{}, nil, nil, errs.Invalid("body", "invalid request payload")
	}

	v := shared.NewValidator()
	v.Required("half", payload.Half, "is required")
	v.Enum("half", payload.Half, []string{string(overtime.FirstHalf), string(overtime.SecondHalf)}, "must be first_half or second_half")
	if v.HasIssues() {
		return overtime.SubmitInput{}, nil, v, nil
	}

	var attachments []core.Attachment
	if len(payload.AttachmentIDs) > 0 {
		if h.Attachments == nil {
			return overtime.SubmitInput{}, nil, nil, errs.Invalid("attachmentIds", "attachments are not enabled")
		}
		resolved, err := shared.ResolveAttachments(r.Context(), h.Attachments, userID, payload.AttachmentIDs)
		if err != nil {
			return overtime.SubmitInput{}, nil, nil, err
		}
		attachments = resolved
	}
	var uploaded []core.Attachment
	if shared.IsMultipart(r) {
		stored, err := shared.StoreUploads(r, h.Attachments, userID)
		if err != nil {
			return overtime.SubmitInput{}, nil, nil, err
		}
		uploaded = stored
	}
	return overtime.SubmitInput{
		Year:              payload.Year,
		Half:              overtime.Half(strings.ToLower(payload.Half)),
		Attachments:       append(uploaded, attachments...),
		TimesheetEntryIDs: payload.TimesheetEntryIDs,
		Notes:             payload.Notes,
	}, uploaded, nil, nil
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if shared.IsMultipart(r) && h.Attachments == nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "attachments are not enabled", middleware.GetRequestID(r.Context()))
		return
	}

	in, uploaded, v, err := h.decodeSubmit(r, user.UserID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	req, err := h.Service.Submit(r.Context(), user.Actor(), in)
	if err != nil {
		shared.DiscardUploads(r.Context(), h.Attachments, uploaded)
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.RecordTransition(h.Metrics, "overtime", "submit")
	if err := h.Audit.Record(r.Context(), user.UserID, "overtime.request.submit", "overtime_request", req.ID, nil, req); err != nil {
		slog.Warn("audit overtime.request.submit failed", "err", err)
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Service.Get(r.Context(), user.Actor(), chi.URLParam(r, "requestID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"request":   req,
		"breakdown": overtime.BreakdownOf(req.Entries),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := overtime.RequestFilter{}
	for _, raw := range shared.SplitList(r.URL.Query().Get("status")) {
		st := overtime.Status(raw)
		if !st.IsValid() {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: "unknown status " + raw}})
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "year", Reason: "must be a four digit year"}})
			return
		}
		filter.Year = year
	}
	filter.Half = overtime.Half(r.URL.Query().Get("half"))
	page := shared.ParsePagination(r, 50, 200)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	result, err := h.Service.ListMine(r.Context(), user.Actor(), filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, result.Requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	queue, err := h.Service.ListPending(r.Context(), user.Actor())
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if queue == nil {
		queue = []overtime.Request{}
	}
	api.Success(w, queue, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveHOD(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve_hod", h.Service.ApproveAsHOD)
}

func (h *Handler) handleApproveFinance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve_finance", h.Service.ApproveAsFinance)
}

func (h *Handler) handleApproveManagement(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve_management", h.Service.ApproveAsManagement)
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var payload rejectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	h.transition(w, r, "reject", func(ctx context.Context, actor auth.Actor, id string) (overtime.Request, error) {
		return h.Service.Reject(ctx, actor, id, payload.Reason)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, auth.Actor, string) (overtime.Request, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")
	before, err := h.Service.Get(r.Context(), user.Actor(), requestID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	after, err := fn(r.Context(), user.Actor(), requestID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.RecordTransition(h.Metrics, "overtime", action)
	if err := h.Audit.Record(r.Context(), user.UserID, "overtime.request."+action, "overtime_request", requestID, before, after); err != nil {
		slog.Warn("audit overtime.request."+action+" failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}
