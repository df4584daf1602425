package handler

import (
	"net/http"

	"github.com/sakif/study-buddy/internal/service"
)

// PlannerHandler serves the caller's goals and tasks.
type PlannerHandler struct {
	planner *service.PlannerService
}

func NewPlannerHandler(planner *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{planner: planner}
}

type goalRequest struct {
	Title string `json:"title"`
}

type taskRequest struct {
	Text string `json:"text"`
}

// HandleView returns all of the caller's goals and tasks.
//
// HTTP: GET /api/goals
func (h *PlannerHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.planner.View(r.Context(), currentUser(r)))
}

// HandleCreateGoal adds a goal.
//
// HTTP: POST /api/goals
// REQUEST BODY: {"title": "Pass calculus"}
func (h *PlannerHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	goal, err := h.planner.CreateGoal(r.Context(), currentUser(r), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// HandleDeleteGoal removes a goal and every task under it.
//
// HTTP: DELETE /api/goals/{id}
func (h *PlannerHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeleteGoal(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateTask adds a task under a goal.
//
// HTTP: POST /api/goals/{id}/tasks
// REQUEST BODY: {"text": "Review chapter 3"}
func (h *PlannerHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.planner.CreateTask(r.Context(), currentUser(r), r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HandleToggleTask flips a task between done and not done.
//
// HTTP: POST /api/tasks/{id}/toggle
func (h *PlannerHandler) HandleToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.planner.ToggleTask(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleDeleteTask removes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *PlannerHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeleteTask(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
