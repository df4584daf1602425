package service

import (
	"context"

	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
)

// Planner is one user's goals and tasks.
type Planner struct {
	Goals []model.Goal `json:"goals"`
	Tasks []model.Task `json:"tasks"`
}

// PlannerService manages personal goals and their tasks.
type PlannerService struct {
	ws Workspace
}

func NewPlannerService(ws Workspace) *PlannerService {
	return &PlannerService{ws: ws}
}

func (s *PlannerService) View(ctx context.Context, userID string) Planner {
	goals, tasks := s.ws.Planner(ctx, userID)
	return Planner{Goals: orEmpty(goals), Tasks: orEmpty(tasks)}
}

func (s *PlannerService) CreateGoal(ctx context.Context, userID, title string) (model.Goal, error) {
	id := newID()
	next, _, err := s.ws.Dispatch(ctx, state.CreateGoal{ID: id, UserID: userID, Title: title})
	if err != nil {
		return model.Goal{}, err
	}
	goals := next.Goals[userID]
	return goals[len(goals)-1], nil
}

// DeleteGoal removes the goal and every task under it.
func (s *PlannerService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	_, _, err := s.ws.Dispatch(ctx, state.DeleteGoal{UserID: userID, GoalID: goalID})
	return err
}

func (s *PlannerService) CreateTask(ctx context.Context, userID, goalID, text string) (model.Task, error) {
	id := newID()
	next, _, err := s.ws.Dispatch(ctx, state.CreateTask{ID: id, UserID: userID, GoalID: goalID, Text: text})
	if err != nil {
		return model.Task{}, err
	}
	tasks := next.Tasks[userID]
	return tasks[len(tasks)-1], nil
}

// ToggleTask flips a task between done and not done.
func (s *PlannerService) ToggleTask(ctx context.Context, userID, taskID string) (model.Task, error) {
	next, _, err := s.ws.Dispatch(ctx, state.ToggleTask{UserID: userID, TaskID: taskID})
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range next.Tasks[userID] {
		if t.ID == taskID {
			return t, nil
		}
	}
	return model.Task{}, nil
}

func (s *PlannerService) DeleteTask(ctx context.Context, userID, taskID string) error {
	_, _, err := s.ws.Dispatch(ctx, state.DeleteTask{UserID: userID, TaskID: taskID})
	return err
}
