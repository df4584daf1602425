// Package service holds the business logic between the HTTP handlers and the
// state, storage and AI layers.
//
//	Handler (HTTP) → Service (rules, ids, clocks) → Workspace (state + mirror)
//	                                             ↘ ai.Collaborator
//
// Services never touch http types. They mint ids and timestamps, turn
// requests into state events, and translate failures into apperror values
// that handlers map to status codes.
package service

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
)

// Workspace is the live application state. *workspace.Workspace implements it.
type Workspace interface {
	Dispatch(ctx context.Context, ev state.Event) (state.State, state.Outcome, error)
	Snapshot() state.State
	Planner(ctx context.Context, userID string) ([]model.Goal, []model.Task)
}

// Clock returns the current time. Tests substitute a fixed one.
type Clock func() time.Time

// newID returns a globally unique, sortable id.
func newID() string {
	return xid.New().String()
}
