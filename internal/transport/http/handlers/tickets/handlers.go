package ticketshandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/tickets"
	"timesheet/internal/domain/workflow"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service     *tickets.Service
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Attachments shared.AttachmentStore
	Metrics     shared.TransitionRecorder
}

func NewHandler(service *tickets.Service, perms middleware.PermissionStore, auditSvc *audit.Service, attachments shared.AttachmentStore, metrics shared.TransitionRecorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Attachments: attachments, Metrics: metrics}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.With(middleware.RequireUser).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.ActTicketSubmit, h.Perms)).Post("/", h.handleSubmit)
		r.With(middleware.RequireUser).Get("/{ticketID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.ActTicketManage, h.Perms)).Post("/{ticketID}/assign", h.handleAssign)
		r.With(middleware.RequirePermission(auth.ActTicketManage, h.Perms)).Post("/{ticketID}/start", h.trigger(workflow.TriggerStart))
		r.With(middleware.RequirePermission(auth.ActTicketManage, h.Perms)).Post("/{ticketID}/resolve", h.trigger(workflow.TriggerResolve))
		r.With(middleware.RequireUser).Post("/{ticketID}/close", h.trigger(workflow.TriggerClose))
		r.With(middleware.RequireUser).Post("/{ticketID}/reopen", h.trigger(workflow.TriggerReopen))
	})
}

type submitPayload struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      string   `json:"priority"`
	Category      string   `json:"category"`
	AttachmentIDs []string `json:"attachmentIds"`
}

// decodeSubmit validates the payload before any upload is stored. The
// returned uploads are discarded by the caller if the submission is refused.
func (h *Handler) decodeSubmit(r *http.Request, userID string) (tickets.SubmitInput, []core.Attachment, *shared.Validator, error) {
	var payload submitPayload
	if shared.IsMultipart(r) {
		if err := r.ParseMultipartForm(shared.MaxMultipartBytes); err != nil {
			return tickets.SubmitInput{}, nil, nil, errs.Invalid("body", "invalid multipart payload")
		}
		payload = submitPayload{
			Title:         strings.TrimSpace(r.FormValue("title")),
			Description:   strings.TrimSpace(r.FormValue("description")),
			Priority:      strings.TrimSpace(r.FormValue("priority")),
			Category:      strings.TrimSpace(r.FormValue("category")),
			AttachmentIDs: shared.SplitList(r.FormValue("attachmentIds")),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return tickets.SubmitInput{}, nil, nil, errs.Invalid("body", "invalid request payload")
	}

	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	v.Required("description", payload.Description, "is required")
	v.Enum("priority", payload.Priority, []string{string(tickets.PriorityLow), string(tickets.PriorityMedium), string(tickets.PriorityHigh), string(tickets.PriorityUrgent)}, "must be one of low, medium, high, urgent")
	v.Enum("category", payload.Category, []string{string(tickets.CategoryHardware), string(tickets.CategorySoftware), string(tickets.CategoryNetwork), string(tickets.CategoryAccess), string(tickets.CategoryOther)}, "must be one of hardware, software, network, access, other")
	if v.HasIssues() {
		return tickets.SubmitInput{}, nil, v, nil
	}

	var attachments []core.Attachment
	if len(payload.AttachmentIDs) > 0 {
		if h.Attachments == nil {
			return tickets.SubmitInput{}, nil, nil, errs.Invalid("attachmentIds", "attachments are not enabled")
		}
		resolved, err := shared.ResolveAttachments(r.Context(), h.Attachments, userID, payload.AttachmentIDs)
		if err != nil {
			return tickets.SubmitInput{}, nil, nil, err
		}
		attachments = resolved
	}
	var uploaded []core.Attachment
	if shared.IsMultipart(r) {
		stored, err := shared.StoreUploads(r, h.Attachments, userID)
		if err != nil {
			return tickets.SubmitInput{}, nil, nil, err
		}
		uploaded = stored
	}
	return tickets.SubmitInput{
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    tickets.Priority(strings.ToLower(payload.Priority)),
		Category:    tickets.Category(strings.ToLower(payload.Category)),
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

	ticket, err := h.Service.Submit(r.Context(), user.Actor(), in)
	if err != nil {
		shared.DiscardUploads(r.Context(), h.Attachments, uploaded)
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.RecordTransition(h.Metrics, "ticket", "submit")
	if err := h.Audit.Record(r.Context(), user.UserID, "ticket.submit", "it_ticket", ticket.ID, nil, ticket); err != nil {
		slog.Warn("audit ticket.submit failed", "err", err)
	}
	api.Created(w, ticket, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	ticket, err := h.Service.Get(r.Context(), user.Actor(), chi.URLParam(r, "ticketID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, ticket, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	v := shared.NewValidator()
	filter := tickets.Filter{
		UserID:     strings.TrimSpace(q.Get("userId")),
		AssignedTo: strings.TrimSpace(q.Get("assignedTo")),
	}
	if filter.AssignedTo == "me" {
		filter.AssignedTo = user.UserID
	}
	for _, raw := range shared.SplitList(q.Get("status")) {
		st := tickets.Status(raw)
		if !st.IsValid() {
			v.Add("status", "unknown status "+raw)
			continue
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	if raw := strings.TrimSpace(q.Get("priority")); raw != "" {
		filter.Priority = tickets.Priority(raw)
		if !filter.Priority.IsValid() {
			v.Add("priority", "unknown priority "+raw)
		}
	}
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		filter.Category = tickets.Category(raw)
		if !filter.Category.IsValid() {
			v.Add("category", "unknown category "+raw)
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	result, err := h.Service.List(r.Context(), user.Actor(), filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if result.Tickets == nil {
		result.Tickets = []tickets.Ticket{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, result.Tickets, middleware.GetRequestID(r.Context()))
}

type assignPayload struct {
	AssigneeID string `json:"assigneeId"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload assignPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("assigneeId", payload.AssigneeID, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	ticketID := chi.URLParam(r, "ticketID")
	before, err := h.Service.Get(r.Context(), user.Actor(), ticketID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	after, err := h.Service.Assign(r.Context(), user.Actor(), ticketID, payload.AssigneeID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.RecordTransition(h.Metrics, "ticket", "assign")
	if err := h.Audit.Record(r.Context(), user.UserID, "ticket.assign", "it_ticket", ticketID, before, after); err != nil {
		slog.Warn("audit ticket.assign failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

type notePayload struct {
	Note string `json:"note"`
}

func (h *Handler) trigger(trigger workflow.Trigger) http.HandlerFunc {
	action := trigger.String()
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}
		var payload notePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}

		ticketID := chi.URLParam(r, "ticketID")
		before, err := h.Service.Get(r.Context(), user.Actor(), ticketID)
		if err != nil {
			shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
			return
		}
		after, err := h.Service.Transition(r.Context(), user.Actor(), ticketID, trigger, payload.Note)
		if err != nil {
			shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
			return
		}
		shared.RecordTransition(h.Metrics, "ticket", action)
		if err := h.Audit.Record(r.Context(), user.UserID, "ticket."+action, "it_ticket", ticketID, before, after); err != nil {
			slog.Warn("audit ticket."+action+" failed", "err", err)
		}
		api.Success(w, after, middleware.GetRequestID(r.Context()))
	}
}
