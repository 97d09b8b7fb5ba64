package timesheethandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/timesheet"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service *timesheet.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
	Metrics shared.TransitionRecorder
}

func NewHandler(service *timesheet.Service, perms middleware.PermissionStore, auditSvc *audit.Service, metrics shared.TransitionRecorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Metrics: metrics}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/timesheet", func(r chi.Router) {
		r.With(middleware.RequireUser).Get("/entries", h.handleList)
		r.With(middleware.RequirePermission(auth.ActTimesheetWrite, h.Perms)).Post("/entries", h.handleCreate)
		r.With(middleware.RequireUser).Get("/entries/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.ActTimesheetWrite, h.Perms)).Post("/entries/import", h.handleImport)
		r.With(middleware.RequirePermission(auth.ActTimesheetWrite, h.Perms)).Post("/entries/submit", h.handleSubmit)
		r.With(middleware.RequireUser).Get("/entries/{entryID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.ActTimesheetWrite, h.Perms)).Put("/entries/{entryID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.ActTimesheetApprove, h.Perms)).Post("/entries/{entryID}/approve", h.handleApprove)
	})
	r.With(middleware.RequirePermission(auth.ActTimesheetWrite, h.Perms)).Get("/me/tasks", h.handleMyTasks)
}

type entryPayload struct {
	ProjectID   string  `json:"projectId"`
	TaskID      string  `json:"taskId"`
	Date        string  `json:"date"`
	HoursWorked float64 `json:"hoursWorked"`
	Description string  `json:"description"`
	IsBillable  *bool   `json:"isBillable"`
}

func (p entryPayload) validate() (timesheet.EntryInput, *shared.Validator) {
	v := shared.NewValidator()
	v.Required("projectId", p.ProjectID, "is required")
	v.Required("taskId", p.TaskID, "is required")
	date, _ := v.Date("date", p.Date)
	if p.HoursWorked < 0 || p.HoursWorked > 24 {
		v.Add("hoursWorked", "must be between 0 and 24")
	}
	return timesheet.EntryInput{
		ProjectID:   strings.TrimSpace(p.ProjectID),
		TaskID:      strings.TrimSpace(p.TaskID),
		Date:        date,
		HoursWorked: p.HoursWorked,
		Description: strings.TrimSpace(p.Description),
		IsBillable:  p.IsBillable,
	}, v
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entry, err := h.Service.CreateEntry(r.Context(), user.Actor(), in)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "timesheet.entry.create", "timesheet_entry", entry.ID, nil, entry); err != nil {
		slog.Warn("audit timesheet.entry.create failed", "err", err)
	}
	api.Created(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entryID := chi.URLParam(r, "entryID")
	before, err := h.Service.Get(r.Context(), user.Actor(), entryID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	entry, err := h.Service.UpdateEntry(r.Context(), user.Actor(), entryID, in)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "timesheet.entry.update", "timesheet_entry", entry.ID, before, entry); err != nil {
		slog.Warn("audit timesheet.entry.update failed", "err", err)
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	entry, err := h.Service.Get(r.Context(), user.Actor(), chi.URLParam(r, "entryID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

type submitPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	from, _ := v.Date("from", payload.From)
	to, _ := v.Date("to", payload.To)
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entries, err := h.Service.SubmitEntries(r.Context(), user.Actor(), from, to)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.RecordTransition(h.Metrics, "timesheet", "submit")
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "timesheet.entries.submit", "timesheet_entry", "", nil, map[string]any{
		"from": payload.From, "to": payload.To, "entryIds": ids,
	}); err != nil {
		slog.Warn("audit timesheet.entries.submit failed", "err", err)
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	entryID := chi.URLParam(r, "entryID")
	before, err := h.Service.Get(r.Context(), user.Actor(), entryID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	entry, err := h.Service.ApproveEntry(r.Context(), user.Actor(), entryID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	shared.RecordTransition(h.Metrics, "timesheet", "approve")
	if err := h.Audit.Record(r.Context(), user.UserID, "timesheet.entry.approve", "timesheet_entry", entry.ID, before, entry); err != nil {
		slog.Warn("audit timesheet.entry.approve failed", "err", err)
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func parseFilter(r *http.Request) (timesheet.EntryFilter, *shared.Validator) {
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := timesheet.EntryFilter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		ProjectID:  strings.TrimSpace(q.Get("projectId")),
		TaskID:     strings.TrimSpace(q.Get("taskId")),
	}
	if raw := q.Get("from"); raw != "" {
		filter.From, _ = v.Date("from", raw)
	}
	if raw := q.Get("to"); raw != "" {
		filter.To, _ = v.Date("to", raw)
	}
	v.DateOrder("from", filter.From, "to", filter.To)
	for _, raw := range shared.SplitList(q.Get("status")) {
		st := timesheet.Status(raw)
		if !st.IsValid() {
			v.Add("status", "unknown status "+raw)
			continue
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	return filter, v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter, v := parseFilter(r)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	entries, err := h.Service.List(r.Context(), user.Actor(), filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if entries == nil {
		entries = []timesheet.Entry{}
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter, v := parseFilter(r)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	var buf bytes.Buffer
	if err := h.Service.ExportCSV(r.Context(), user.Actor(), filter, &buf); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "timesheet.export", "timesheet_entry", filter.EmployeeID, nil, map[string]any{
		"employeeId": filter.EmployeeID, "projectId": filter.ProjectID,
	}); err != nil {
		slog.Warn("audit timesheet.export failed", "err", err)
	}
	api.File(w, "text/csv", fmt.Sprintf("timesheet-%s.csv", time.Now().UTC().Format("20060102")), buf.Bytes())
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	body, err := shared.CSVBody(r)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	rows, err := timesheet.ParseEntriesCSV(body)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	entries, err := h.Service.ImportEntries(r.Context(), user.Actor(), rows)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "timesheet.entries.import", "timesheet_entry", "", nil, map[string]any{"entryIds": ids}); err != nil {
		slog.Warn("audit timesheet.entries.import failed", "err", err)
	}
	api.Created(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMyTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	var filter timesheet.TaskFilter
	for _, raw := range shared.SplitList(q.Get("status")) {
		st := core.TaskStatus(raw)
		if !st.IsValid() && st != core.TaskOverdue {
			v.Add("status", "unknown status "+raw)
			continue
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	for _, raw := range shared.SplitList(q.Get("priority")) {
		p := core.TaskPriority(raw)
		if !p.IsValid() {
			v.Add("priority", "unknown priority "+raw)
			continue
		}
		filter.Priorities = append(filter.Priorities, p)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	tasks, err := h.Service.MyTasks(r.Context(), user.Actor(), filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if tasks == nil {
		tasks = []timesheet.AssignedTask{}
	}
	api.Success(w, tasks, middleware.GetRequestID(r.Context()))
}
