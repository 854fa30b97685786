package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seed-run/seed/internal/observability"
	"github.com/seed-run/seed/internal/tasks"
	"github.com/seed-run/seed/pkg/domain"
	"github.com/seed-run/seed/pkg/wire"
)

// newRouter builds the HTTP surface named in SPEC_FULL.md's external
// interfaces section, grounded on the teacher's web.Handler ServeMux
// wiring but without the dashboard templates: one route per wire
// operation, a /metrics endpoint, and a /ws push channel.
func newRouter(app *app, logger *observability.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tasks", handleTasks(app))
	mux.HandleFunc("/api/tasks/", handleTask(app))
	mux.HandleFunc("/api/events", handleEvents(app))
	mux.HandleFunc("/api/audit", handleAudit(app))
	mux.HandleFunc("/api/runtime", handleRuntime(app))
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registerer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", handleWS(app, logger))

	return logRequests(logger, mux)
}

func logRequests(logger *observability.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		logger.Debug("http request", "method", r.Method, "path", r.URL.Path)
	})
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, wire.ErrorResponse{Error: message})
}

// handleTasks serves GET /api/tasks (listTasks) and POST /api/tasks
// (createTask).
func handleTasks(app *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			tasks := app.Tasks.ListTasks()
			sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
			out := make([]wire.Task, 0, len(tasks))
			for _, t := range tasks {
				out = append(out, wire.FromTask(t))
			}
			jsonResponse(w, http.StatusOK, wire.ListTasksResponse{Tasks: out})

		case http.MethodPost:
			var req wire.CreateTaskRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				jsonError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			id, err := app.Tasks.CreateTask(r.Context(), toCreateTaskInput(req))
			if err != nil {
				jsonError(w, http.StatusBadRequest, err.Error())
				return
			}
			jsonResponse(w, http.StatusCreated, wire.CreateTaskResponse{TaskID: id})

		default:
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func toCreateTaskInput(req wire.CreateTaskRequest) tasks.CreateTaskInput {
	return tasks.CreateTaskInput{
		Title: req.Title, Intent: req.Intent, Priority: domain.Priority(req.Priority),
		AgentID: req.AgentID, ParentTaskID: req.ParentTaskID, AuthorActorID: req.AuthorActorID,
	}
}

// handleTask dispatches every /api/tasks/{id}[/...] route: getTask,
// cancelTask, pauseTask, resumeTask, addInstruction, and the two
// interaction endpoints nested under a task.
func handleTask(app *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
		parts := strings.SplitN(rest, "/", 3)
		taskID := parts[0]
		if taskID == "" {
			jsonError(w, http.StatusNotFound, "task id required")
			return
		}

		switch {
		case len(parts) == 1:
			handleTaskRoot(app, w, r, taskID)
		case len(parts) == 2 && parts[1] == "cancel":
			handleTaskAction(w, r, taskID, app.Tasks.CancelTask)
		case len(parts) == 2 && parts[1] == "pause":
			handleTaskAction(w, r, taskID, app.Tasks.PauseTask)
		case len(parts) == 2 && parts[1] == "resume":
			handleTaskAction(w, r, taskID, app.Tasks.ResumeTask)
		case len(parts) == 2 && parts[1] == "instructions":
			handleAddInstruction(app, w, r, taskID)
		case len(parts) == 2 && parts[1] == "interaction":
			handleGetPendingInteraction(app, w, r, taskID)
		case len(parts) == 3 && parts[1] == "interaction" && strings.HasSuffix(parts[2], "/respond"):
			interactionID := strings.TrimSuffix(parts[2], "/respond")
			handleRespondToInteraction(app, w, r, taskID, interactionID)
		default:
			jsonError(w, http.StatusNotFound, "unknown route")
		}
	}
}

func handleTaskRoot(app *app, w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	t, ok := app.Tasks.GetTask(taskID)
	if !ok {
		jsonError(w, http.StatusNotFound, "task not found")
		return
	}
	jsonResponse(w, http.StatusOK, wire.FromTask(t))
}

func handleTaskAction(w http.ResponseWriter, r *http.Request, taskID string, action func(context.Context, string, string) error) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req wire.ActorRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := action(r.Context(), taskID, req.AuthorActorID); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleAddInstruction(app *app, w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req wire.AddInstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := app.Tasks.AddInstruction(r.Context(), taskID, req.Instruction, req.AuthorActorID); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleGetPendingInteraction(app *app, w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pi, found, err := app.Interaction.GetPendingInteraction(r.Context(), taskID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := wire.GetPendingInteractionResponse{Found: found}
	if found {
		resp.Interaction = wire.FromInteraction(pi)
	}
	jsonResponse(w, http.StatusOK, resp)
}

func handleRespondToInteraction(app *app, w http.ResponseWriter, r *http.Request, taskID, interactionID string) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req wire.RespondToInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := app.Interaction.RespondToInteraction(r.Context(), taskID, interactionID, req.ToResponseSpec()); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents serves getEvents(afterId, streamId?).
func handleEvents(app *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		afterID, _ := strconv.ParseInt(r.URL.Query().Get("afterId"), 10, 64)
		streamID := r.URL.Query().Get("streamId")

		var events []domain.StoredEvent
		var err error
		if streamID != "" {
			events, err = app.EventLog.ReadStream(r.Context(), streamID)
		} else {
			events, err = app.EventLog.ReadAll(r.Context())
		}
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}

		out := make([]wire.Event, 0, len(events))
		for _, e := range events {
			if e.ID <= afterID {
				continue
			}
			out = append(out, wire.FromEvent(e))
		}
		jsonResponse(w, http.StatusOK, wire.GetEventsResponse{Events: out})
	}
}

// handleAudit serves getAudit(limit, taskId?).
func handleAudit(app *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		taskID := r.URL.Query().Get("taskId")
		if taskID == "" {
			jsonError(w, http.StatusBadRequest, "taskId is required")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 1000 {
			limit = 100
		}

		entries, err := app.AuditLog.ByTask(r.Context(), taskID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
		out := make([]wire.AuditEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, wire.FromAuditEntry(e))
		}
		jsonResponse(w, http.StatusOK, wire.GetAuditResponse{Entries: out})
	}
}

// handleRuntime serves getRuntime(): a live snapshot of the task IDs the
// Runtime Manager is running and queuing. Registered agent profiles are not
// included in the response.
func handleRuntime(app *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		active, queued := app.Manager.Status()
		jsonResponse(w, http.StatusOK, wire.RuntimeStatus{ActiveTaskIDs: active, QueuedTaskIDs: queued})
	}
}
