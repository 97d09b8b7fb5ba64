package leavehandler

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
	"timesheet/internal/domain/leave"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service     *leave.Service
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Attachments shared.AttachmentStore
	Metrics     shared.TransitionRecorder
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, auditSvc *audit.Service, attachments shared.AttachmentStore, metrics shared.TransitionRecorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Attachments: attachments, Metrics: metrics}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActLeaveSubmit, h.Perms)).Get("/balances", h.handleBalances)
		r.With(middleware.RequirePermission(auth.ActBalancesAdjust, h.Perms)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.ActLeaveSubmit, h.Perms)).Get("/requests", h.handleListMine)
		r.With(middleware.RequireUser).Get("/requests/pending", h.handleListPending)
		r.With(middleware.RequirePermission(auth.ActLeaveSubmit, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequireUser).Get("/requests/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.ActLeaveApproveHOD, h.Perms)).Post("/requests/{requestID}/approve-hod", h.handleApproveHOD)
		r.With(middleware.RequirePermission(auth.ActLeaveApproveHR, h.Perms)).Post("/requests/{requestID}/approve-hr", h.handleApproveHR)
		r.With(middleware.RequireUser).Post("/requests/{requestID}/reject", h.handleReject)
	})
}

type submitPayload struct {
	LeaveType     string   `json:"leaveType"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	Reason        string   `json:"reason"`
	AttachmentIDs []string `json:"attachmentIds"`
}

// decodeSubmit validates the payload before any upload is stored. The
// returned uploads are discarded by the caller if the submission is refused.
func (h *Handler) decodeSubmit(r *http.Request, userID string) (leave.SubmitInput, []core.Attachment, *shared.Validator, error) {
	var payload submitPayload
	if shared.IsMultipart(r) {
		if err := r.ParseMultipartForm(shared.MaxMultipartBytes); err != nil {
			return leave.SubmitInput{}, nil, nil, errs.Invalid("body", "invalid multipart payload")
		}
		payload = submitPayload{
			LeaveType:     strings.TrimSpace(r.FormValue("leaveType")),
			StartDate:     strings.TrimSpace(r.FormValue("startDate")),
			EndDate:       strings.TrimSpace(r.FormValue("endDate")),
			Reason:        strings.TrimSpace(r.FormValue("reason")),
			AttachmentIDs: shared.SplitList(r.FormValue("attachmentIds")),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return leave.SubmitInput{}, nil, nil, errs.Invalid("body", "invalid request payload")
	}

	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "is required")
	v.Enum("leaveType", payload.LeaveType, []string{string(leave.TypeAnnual), string(leave.TypeMedical), string(leave.TypeUnpaid), string(leave.TypeTimeOff)}, "must be one of annual_leave, medical_leave, unpaid_leave, time_off")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	v.Required("reason", payload.Reason, "is required")
	if v.HasIssues() {
		return leave.SubmitInput{}, nil, v, nil
	}

	var attachments []core.Attachment
	if len(payload.AttachmentIDs) > 0 {
		if h.Attachments == nil {
			return leave.SubmitInput{}, nil, nil, errs.Invalid("attachmentIds", "attachments are not enabled")
		}
		resolved, err := shared.ResolveAttachments(r.Context(), h.Attachments, userID, payload.AttachmentIDs)
		if err != nil {
			return leave.SubmitInput{}, nil, nil, err
		}
		attachments = resolved
	}
	var uploaded []core.Attachment
	if shared.IsMultipart(r) {
		stored, err := shared.StoreUploads(r, h.Attachments, userID)
		if err != nil {
			return leave.SubmitInput{}, nil, nil, err
		}
		uploaded = stored
	}
	return leave.SubmitInput{
		Type:        leave.Type(strings.ToLower(payload.LeaveType)),
		StartDate:   start,
		EndDate:     end,
		Reason:      payload.Reason,
		Attachments: append(uploaded, attachments...),
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
	shared.RecordTransition(h.Metrics, "leave", "submit")
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request.submit", "leave_request", req.ID, nil, req); err != nil {
		slog.Warn("audit leave.request.submit failed", "err", err)
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
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter := leave.RequestFilter{}
	for _, raw := range shared.SplitList(r.URL.Query().Get("status")) {
		st := leave.Status(raw)
		if !st.IsValid() {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: "unknown status " + raw}})
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
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
		queue = []leave.Request{}
	}
	api.Success(w, queue, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveHOD(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve_hod", h.Service.ApproveAsHOD)
}

func (h *Handler) handleApproveHR(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve_hr", h.Service.ApproveAsHR)
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
	h.transition(w, r, "reject", func(ctx context.Context, actor auth.Actor, id string) (leave.Request, error) {
		return h.Service.Reject(ctx, actor, id, payload.Reason)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, auth.Actor, string) (leave.Request, error)) {
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
	shared.RecordTransition(h.Metrics, "leave", action)
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request."+action, "leave_request", requestID, before, after); err != nil {
		slog.Warn("audit leave.request."+action+" failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	balances, err := h.Service.Balances(r.Context(), user.Actor(), strings.TrimSpace(r.URL.Query().Get("employeeId")))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

type adjustBalancePayload struct {
	EmployeeID string  `json:"employeeId"`
	LeaveType  string  `json:"leaveType"`
	Delta      float64 `json:"delta"`
	Reason     string  `json:"reason"`
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload adjustBalancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	v.Required("leaveType", payload.LeaveType, "is required")
	if payload.Delta == 0 {
		v.Add("delta", "must be non-zero")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, err := h.Service.Balances(r.Context(), user.Actor(), payload.EmployeeID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	after, err := h.Service.Adjust(r.Context(), user.Actor(), payload.EmployeeID, leave.Type(payload.LeaveType), payload.Delta)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "leave.balance.adjust", "employee", payload.EmployeeID, before, map[string]any{
		"balances": after,
		"reason":   payload.Reason,
	}); err != nil {
		slog.Warn("audit leave.balance.adjust failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}
