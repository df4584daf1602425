// Package workspace owns the live application state.
//
// A Workspace wraps the pure reducer from package state with the things it
// deliberately lacks: a mutex, the persistence mirror and the chat hub.
// Dispatch is the only way to change state. It holds the lock for the whole
// reduce-swap-persist sequence, so two requests in one process can never
// interleave their writes.
//
// Across processes the store is shared and the last writer wins. Two things
// narrow that window: chats and stats are re-read from the store right before
// events that touch them, and a background poller adopts the stored chat table
// whenever it differs from memory.
package workspace

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/sakif/study-buddy/internal/chathub"
	"github.com/sakif/study-buddy/internal/mirror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
)

// Workspace is safe for concurrent use.
type Workspace struct {
	mu     sync.Mutex
	state  state.State
	loaded map[string]bool // users whose goals and tasks have been read

	mirror *mirror.Mirror
	hub    *chathub.Hub
	logger *slog.Logger
}

// Open loads the shared collections from the mirror. Per-user planner slots
// are loaded lazily, the first time a user touches them.
func Open(ctx context.Context, m *mirror.Mirror, hub *chathub.Hub, logger *slog.Logger) *Workspace {
	s := state.Empty()
	s.Groups = mirror.Groups.Load(ctx, m)
	s.GroupChats = mirror.GroupChats.Load(ctx, m)
	s.SharedNotes = mirror.SharedNotes.Load(ctx, m)
	s.Stats = mirror.AllStats.Load(ctx, m)

	logger.Info("workspace opened",
		"groups", len(s.Groups),
		"users", len(s.Stats),
	)

	return &Workspace{
		state:  s,
		loaded: make(map[string]bool),
		mirror: m,
		hub:    hub,
		logger: logger,
	}
}

// Snapshot returns the current state. The value is never mutated after it is
// returned, so callers may read it without holding any lock.
func (w *Workspace) Snapshot() state.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Planner returns userID's goals and tasks.
func (w *Workspace) Planner(ctx context.Context, userID string) ([]model.Goal, []model.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.loadUser(ctx, userID)
	return w.state.Goals[userID], w.state.Tasks[userID]
}

// Dispatch applies ev and persists whatever it changed.
//
// Only reducer errors are returned. Storage failures are logged by the
// mirror and do not undo the in-memory change.
func (w *Workspace) Dispatch(ctx context.Context, ev state.Event) (state.State, state.Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.refresh(ctx, ev)

	next, out, err := state.Reduce(w.state, ev)
	if err != nil {
		return w.state, state.Outcome{}, err
	}
	w.state = next

	w.persist(ctx, out)

	if out.ChatGroup != "" {
		w.hub.Publish(out.ChatGroup, next.GroupChats[out.ChatGroup])
	}
	if len(out.Achievements) > 0 {
		names := make([]string, 0, len(out.Achievements))
		for _, a := range out.Achievements {
			names = append(names, a.Name)
		}
		w.logger.Info("new achievements unlocked", "user", actorOf(ev), "achievements", names)
	}

	return next, out, nil
}

// refresh pulls in what other processes may have written to the slots ev is
// about to touch. Caller holds w.mu.
func (w *Workspace) refresh(ctx context.Context, ev state.Event) {
	switch e := ev.(type) {
	case state.SendGroupMessage:
		if latest, ok := mirror.GroupChats.Fetch(ctx, w.mirror); ok {
			w.state.GroupChats = mergeChats(w.state.GroupChats, latest)
		}
	case state.Login, state.CreateGroup, state.ShareNote, state.RecordAction:
		if latest, ok := mirror.AllStats.Fetch(ctx, w.mirror); ok {
			w.state.Stats = mergeStats(w.state.Stats, latest)
		}
	case state.CreateGoal:
		w.loadUser(ctx, e.UserID)
	case state.DeleteGoal:
		w.loadUser(ctx, e.UserID)
	case state.CreateTask:
		w.loadUser(ctx, e.UserID)
	case state.ToggleTask:
		w.loadUser(ctx, e.UserID)
	case state.DeleteTask:
		w.loadUser(ctx, e.UserID)
	}
}

// loadUser reads userID's planner slots once. Caller holds w.mu.
func (w *Workspace) loadUser(ctx context.Context, userID string) {
	if w.loaded[userID] {
		return
	}

	goals := mirror.Goals(userID).Load(ctx, w.mirror)
	tasks := mirror.Tasks(userID).Load(ctx, w.mirror)

	s := w.state
	s.Goals = maps.Clone(s.Goals)
	s.Goals[userID] = goals
	s.Tasks = maps.Clone(s.Tasks)
	s.Tasks[userID] = tasks
	w.state = s
	w.loaded[userID] = true
}

// persist writes every slot named by out. Caller holds w.mu.
func (w *Workspace) persist(ctx context.Context, out state.Outcome) {
	s := w.state
	if out.Groups {
		_ = mirror.Groups.Save(ctx, w.mirror, s.Groups)
	}
	if out.GroupChats {
		_ = mirror.GroupChats.Save(ctx, w.mirror, s.GroupChats)
	}
	if out.SharedNotes {
		_ = mirror.SharedNotes.Save(ctx, w.mirror, s.SharedNotes)
	}
	if out.Stats {
		_ = mirror.AllStats.Save(ctx, w.mirror, s.Stats)
	}
	if out.GoalsOf != "" {
		_ = mirror.Goals(out.GoalsOf).Save(ctx, w.mirror, orEmpty(s.Goals[out.GoalsOf]))
	}
	if out.TasksOf != "" {
		_ = mirror.Tasks(out.TasksOf).Save(ctx, w.mirror, orEmpty(s.Tasks[out.TasksOf]))
	}
}

// RunChatPoller folds chat messages written by other processes into the
// workspace every interval, until ctx is cancelled.
func (w *Workspace) RunChatPoller(ctx context.Context, interval time.Duration) {
	w.logger.Info("chat poller started", "interval", interval)
	mirror.GroupChats.Poll(ctx, w.mirror, interval, w.absorbChats)
	w.logger.Info("chat poller stopped")
}

// absorbChats adopts a freshly read chat table. The store is the shared
// truth, so whenever it differs from memory it replaces the in-memory table,
// and subscribers hear about every group whose list changed.
func (w *Workspace) absorbChats(latest map[string][]model.GroupChatMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.state.GroupChats
	if mirror.Same(current, latest) {
		return
	}

	s := w.state
	s.GroupChats = latest
	w.state = s

	for groupID, messages := range latest {
		if !mirror.Same(current[groupID], messages) {
			w.logger.Debug("chat updated from store", "group_id", groupID, "messages", len(messages))
			w.hub.Publish(groupID, messages)
		}
	}
	for groupID := range current {
		if _, ok := latest[groupID]; !ok {
			w.hub.Publish(groupID, []model.GroupChatMessage{})
		}
	}
}

// mergeChats combines two chat tables before an append. Messages are only
// ever appended, so for each group the longer list is the more recent one;
// ties keep ours.
func mergeChats(ours, theirs map[string][]model.GroupChatMessage) map[string][]model.GroupChatMessage {
	merged := maps.Clone(ours)
	if merged == nil {
		merged = map[string][]model.GroupChatMessage{}
	}
	for groupID, messages := range theirs {
		if len(messages) > len(merged[groupID]) {
			merged[groupID] = messages
		}
	}
	return merged
}

// mergeStats combines two stats tables. Points never decrease, so for each
// user the record with more points wins; ties keep ours.
func mergeStats(ours, theirs map[string]model.UserStats) map[string]model.UserStats {
	merged := maps.Clone(ours)
	if merged == nil {
		merged = map[string]model.UserStats{}
	}
	for userID, st := range theirs {
		if mine, ok := merged[userID]; !ok || st.Points > mine.Points {
			merged[userID] = st
		}
	}
	return merged
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// actorOf names the user an event acts for, for logging.
func actorOf(ev state.Event) string {
	switch e := ev.(type) {
	case state.CreateGroup:
		return e.Owner
	case state.ShareNote:
		return e.Sender
	case state.RecordAction:
		return e.UserID
	case state.Login:
		return e.UserID
	default:
		return ""
	}
}
