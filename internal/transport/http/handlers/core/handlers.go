package corehandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"timesheet/internal/domain/audit"
	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/transport/http/api"
	"timesheet/internal/transport/http/middleware"
	"timesheet/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *core.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireUser).Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/", h.handleListEmployees)
		r.Get("/{employeeID}", h.handleGetEmployee)
	})
	r.Route("/projects", func(r chi.Router) {
		r.With(middleware.RequireUser).Get("/", h.handleListProjects)
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Post("/", h.handleCreateProject)
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Post("/import", h.handleImportProjects)
		r.With(middleware.RequireUser).Get("/{projectID}", h.handleGetProject)
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Put("/{projectID}", h.handleUpdateProject)
		r.With(middleware.RequireUser).Get("/{projectID}/tasks", h.handleListTasks)
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Post("/{projectID}/tasks", h.handleCreateTask)
		r.With(middleware.RequireUser).Get("/{projectID}/assignees", h.assignees(core.AssignProject, "projectID"))
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Post("/{projectID}/assignees", h.handleAssign(core.AssignProject, "projectID"))
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Delete("/{projectID}/assignees/{userID}", h.handleUnassign(core.AssignProject, "projectID"))
	})
	r.Route("/tasks", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Post("/import", h.handleImportTasks)
		r.With(middleware.RequireUser).Get("/{taskID}", h.handleGetTask)
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Put("/{taskID}", h.handleUpdateTask)
		r.With(middleware.RequireUser).Get("/{taskID}/assignees", h.assignees(core.AssignTask, "taskID"))
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Post("/{taskID}/assignees", h.handleAssign(core.AssignTask, "taskID"))
		r.With(middleware.RequirePermission(auth.ActWorkManage, h.Perms)).Delete("/{taskID}/assignees/{userID}", h.handleUnassign(core.AssignTask, "taskID"))
	})
}

type meResponse struct {
	Employee     core.Employee `json:"employee"`
	Capabilities []auth.Action `json:"capabilities"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	emp, err := h.Service.Employee(r.Context(), user.UserID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, meResponse{Employee: emp, Capabilities: auth.ActionsFor(user.Role)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employees, err := h.Service.Visible(r.Context(), user.Actor())
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	out := make([]core.Employee, 0, len(employees))
	for _, emp := range employees {
		core.FilterEmployeeFields(&emp, user.Actor())
		out = append(out, emp)
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.Service.CanActFor(r.Context(), user.Actor(), employeeID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	emp, err := h.Service.Employee(r.Context(), employeeID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	core.FilterEmployeeFields(&emp, user.Actor())
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Service.Projects(r.Context())
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if projects == nil {
		projects = []core.Project{}
	}
	api.Success(w, projects, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.Service.Project(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, project, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := h.Service.Project(r.Context(), projectID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	tasks, err := h.Service.Tasks(r.Context(), projectID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if tasks == nil {
		tasks = []core.Task{}
	}
	api.Success(w, tasks, middleware.GetRequestID(r.Context()))
}

type projectPayload struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Status     string `json:"status"`
	IsBillable bool   `json:"isBillable"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

func (p projectPayload) validate() (core.ProjectInput, *shared.Validator) {
	v := shared.NewValidator()
	v.Required("name", p.Name, "is required")
	v.Enum("status", p.Status, []string{string(core.ProjectActive), string(core.ProjectCompleted), string(core.ProjectOnHold)}, "must be one of active, completed, on_hold")
	start, _ := v.Date("startDate", p.StartDate)
	in := core.ProjectInput{
		Name:       strings.TrimSpace(p.Name),
		Department: strings.TrimSpace(p.Department),
		Status:     core.ProjectStatus(p.Status),
		IsBillable: p.IsBillable,
		StartDate:  start,
	}
	if p.EndDate != "" {
		end, ok := v.Date("endDate", p.EndDate)
		if ok {
			v.DateOrder("startDate", start, "endDate", end)
			in.EndDate = &end
		}
	}
	return in, v
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	project, err := h.Service.CreateProject(r.Context(), user.Actor(), in)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "project.create", "project", project.ID, nil, project); err != nil {
		slog.Warn("audit project.create failed", "err", err)
	}
	api.Created(w, project, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	projectID := chi.URLParam(r, "projectID")
	before, err := h.Service.Project(r.Context(), projectID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	project, err := h.Service.UpdateProject(r.Context(), user.Actor(), projectID, in)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "project.update", "project", project.ID, before, project); err != nil {
		slog.Warn("audit project.update failed", "err", err)
	}
	api.Success(w, project, middleware.GetRequestID(r.Context()))
}

type taskPayload struct {
	ProjectID      string   `json:"projectId"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	EstimatedHours *float64 `json:"estimatedHours"`
	IsBillable     bool     `json:"isBillable"`
	TaskType       string   `json:"taskType"`
	Priority       string   `json:"priority"`
	Status         string   `json:"status"`
	DueDate        string   `json:"dueDate"`
}

func (p taskPayload) validate() (core.TaskInput, *shared.Validator) {
	v := shared.NewValidator()
	v.Required("name", p.Name, "is required")
	if p.EstimatedHours != nil && *p.EstimatedHours < 0 {
		v.Add("estimatedHours", "must not be negative")
	}
	in := core.TaskInput{
		ProjectID:      strings.TrimSpace(p.ProjectID),
		Name:           strings.TrimSpace(p.Name),
		Description:    strings.TrimSpace(p.Description),
		EstimatedHours: p.EstimatedHours,
		IsBillable:     p.IsBillable,
		TaskType:       core.TaskType(p.TaskType),
		Priority:       core.TaskPriority(p.Priority),
		Status:         core.TaskStatus(p.Status),
	}
	if p.DueDate != "" {
		if due, ok := v.Date("dueDate", p.DueDate); ok {
			in.DueDate = &due
		}
	}
	return in, v
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.ProjectID = chi.URLParam(r, "projectID")
	in, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	task, err := h.Service.CreateTask(r.Context(), user.Actor(), in)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "task.create", "task", task.ID, nil, task); err != nil {
		slog.Warn("audit task.create failed", "err", err)
	}
	api.Created(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Service.Task(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, v := payload.validate()
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	taskID := chi.URLParam(r, "taskID")
	before, err := h.Service.Task(r.Context(), taskID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	task, err := h.Service.UpdateTask(r.Context(), user.Actor(), taskID, in)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "task.update", "task", task.ID, before, task); err != nil {
		slog.Warn("audit task.update failed", "err", err)
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) assignees(kind core.AssignmentKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assigned, err := h.Service.Assignments(r.Context(), kind, chi.URLParam(r, param))
		if err != nil {
			shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
			return
		}
		if assigned == nil {
			assigned = []core.Assignment{}
		}
		api.Success(w, assigned, middleware.GetRequestID(r.Context()))
	}
}

type assignPayload struct {
	UserIDs []string `json:"userIds"`
}

func (h *Handler) handleAssign(kind core.AssignmentKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		if len(payload.UserIDs) == 0 {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "userIds", Reason: "at least one user is required"}})
			return
		}

		targetID := chi.URLParam(r, param)
		assign := h.Service.AssignProject
		if kind == core.AssignTask {
			assign = h.Service.AssignTask
		}
		assigned, err := assign(r.Context(), user.Actor(), targetID, payload.UserIDs)
		if err != nil {
			shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
			return
		}
		if err := h.Audit.Record(r.Context(), user.UserID, string(kind)+".assign", string(kind), targetID, nil, payload); err != nil {
			slog.Warn("audit "+string(kind)+".assign failed", "err", err)
		}
		api.Success(w, assigned, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleUnassign(kind core.AssignmentKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}
		targetID, userID := chi.URLParam(r, param), chi.URLParam(r, "userID")
		if err := h.Service.Unassign(r.Context(), user.Actor(), kind, targetID, userID); err != nil {
			shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
			return
		}
		if err := h.Audit.Record(r.Context(), user.UserID, string(kind)+".unassign", string(kind), targetID, map[string]string{"userId": userID}, nil); err != nil {
			slog.Warn("audit "+string(kind)+".unassign failed", "err", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type importResult[T any] struct {
	Imported int `json:"imported"`
	Rows     []T `json:"rows"`
}

func (h *Handler) handleImportProjects(w http.ResponseWriter, r *http.Request) {
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
	rows, err := core.ParseProjectsCSV(body)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	created, err := h.Service.ImportProjects(r.Context(), user.Actor(), rows)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "project.import", "project", "", nil, map[string]any{"rows": len(created)}); err != nil {
		slog.Warn("audit project.import failed", "err", err)
	}
	api.Created(w, importResult[core.Project]{Imported: len(created), Rows: created}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleImportTasks(w http.ResponseWriter, r *http.Request) {
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
	rows, err := core.ParseTasksCSV(body)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	created, err := h.Service.ImportTasks(r.Context(), user.Actor(), rows)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "task.import", "task", "", nil, map[string]any{"rows": len(created)}); err != nil {
		slog.Warn("audit task.import failed", "err", err)
	}
	api.Created(w, importResult[core.Task]{Imported: len(created), Rows: created}, middleware.GetRequestID(r.Context()))
}
