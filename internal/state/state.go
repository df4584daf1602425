// Package state is the application's state machine.
//
// State is a plain value and Reduce is a pure function: given the current
// state and one event it returns the next state, a description of what
// changed, and an error when the event is not allowed. Nothing here talks to
// storage or reads a clock; IDs and timestamps arrive inside the events.
//
// Reduce never mutates its input. Every collection it touches is copied
// before being changed, so a State handed out earlier stays valid forever and
// can be read without locks.
package state

import (
	"maps"
	"slices"

	"github.com/sakif/study-buddy/internal/model"
)

// State is every shared collection of the application.
type State struct {
	Groups      []model.StudyGroup
	GroupChats  map[string][]model.GroupChatMessage // by group id
	SharedNotes map[string][]model.SharedNote       // by group id
	Goals       map[string][]model.Goal             // by user id
	Tasks       map[string][]model.Task             // by user id
	Stats       map[string]model.UserStats          // by user id
}

// Empty returns a state with every collection allocated.
func Empty() State {
	return State{
		Groups:      []model.StudyGroup{},
		GroupChats:  map[string][]model.GroupChatMessage{},
		SharedNotes: map[string][]model.SharedNote{},
		Goals:       map[string][]model.Goal{},
		Tasks:       map[string][]model.Task{},
		Stats:       map[string]model.UserStats{},
	}
}

// Outcome reports what a reduction changed.
//
// The boolean fields name whole-table slots. GoalsOf and TasksOf name the user
// whose per-user slot changed, and ChatGroup the group whose message list
// grew. Achievements holds what the event unlocked for its actor.
type Outcome struct {
	Groups      bool
	GroupChats  bool
	SharedNotes bool
	Stats       bool
	GoalsOf     string
	TasksOf     string
	ChatGroup   string

	Achievements []model.Achievement
}

// Changed reports whether anything needs persisting.
func (o Outcome) Changed() bool {
	return o.Groups || o.GroupChats || o.SharedNotes || o.Stats || o.GoalsOf != "" || o.TasksOf != ""
}

// GroupsFor returns the groups userID belongs to, in creation order.
func (s State) GroupsFor(userID string) []model.StudyGroup {
	mine := []model.StudyGroup{}
	for _, g := range s.Groups {
		if g.HasMember(userID) {
			mine = append(mine, g)
		}
	}
	return mine
}

// Group finds a group by id.
func (s State) Group(id string) (model.StudyGroup, bool) {
	i := s.groupIndex(id)
	if i < 0 {
		return model.StudyGroup{}, false
	}
	return s.Groups[i], true
}

// StatsFor returns userID's stats, or ok=false if the user never logged in.
func (s State) StatsFor(userID string) (model.UserStats, bool) {
	st, ok := s.Stats[userID]
	return st, ok
}

func (s State) groupIndex(id string) int {
	return slices.IndexFunc(s.Groups, func(g model.StudyGroup) bool { return g.ID == id })
}

// withGroups, withChats and friends return a shallow copy of s with one
// collection replaced. The copy shares untouched collections with s.

func (s State) withGroups(groups []model.StudyGroup) State {
	s.Groups = groups
	return s
}

func (s State) withChats(groupID string, messages []model.GroupChatMessage) State {
	s.GroupChats = maps.Clone(s.GroupChats)
	if s.GroupChats == nil {
		s.GroupChats = map[string][]model.GroupChatMessage{}
	}
	s.GroupChats[groupID] = messages
	return s
}

func (s State) withNotes(groupID string, notes []model.SharedNote) State {
	s.SharedNotes = maps.Clone(s.SharedNotes)
	if s.SharedNotes == nil {
		s.SharedNotes = map[string][]model.SharedNote{}
	}
	s.SharedNotes[groupID] = notes
	return s
}

func (s State) withGoals(userID string, goals []model.Goal) State {
	s.Goals = maps.Clone(s.Goals)
	if s.Goals == nil {
		s.Goals = map[string][]model.Goal{}
	}
	s.Goals[userID] = goals
	return s
}

func (s State) withTasks(userID string, tasks []model.Task) State {
	s.Tasks = maps.Clone(s.Tasks)
	if s.Tasks == nil {
		s.Tasks = map[string][]model.Task{}
	}
	s.Tasks[userID] = tasks
	return s
}

func (s State) withStats(st model.UserStats) State {
	s.Stats = maps.Clone(s.Stats)
	if s.Stats == nil {
		s.Stats = map[string]model.UserStats{}
	}
	s.Stats[st.UserID] = st
	return s
}
