package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/stats"
)

// Reduce applies ev to s.
//
// On error the returned state is s itself and the outcome is empty. An event
// that is allowed but changes nothing (adding a member twice, say) returns s
// with an empty outcome and no error.
func Reduce(s State, ev Event) (State, Outcome, error) {
	switch e := ev.(type) {
	case Login:
		return login(s, e)
	case CreateGroup:
		return createGroup(s, e)
	case AddMember:
		return addMember(s, e)
	case RemoveMember:
		return removeMember(s, e)
	case SendGroupMessage:
		return sendGroupMessage(s, e)
	case ShareNote:
		return shareNote(s, e)
	case DeleteNote:
		return deleteNote(s, e)
	case CreateGoal:
		return createGoal(s, e)
	case DeleteGoal:
		return deleteGoal(s, e)
	case CreateTask:
		return createTask(s, e)
	case ToggleTask:
		return toggleTask(s, e)
	case DeleteTask:
		return deleteTask(s, e)
	case RecordAction:
		return recordAction(s, e)
	default:
		return s, Outcome{}, fmt.Errorf("state: unhandled event %T", ev)
	}
}

// required trims value and rejects it when nothing is left.
func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	return value, nil
}

// award runs the stats engine for userID, creating the record if needed.
func award(s State, userID string, action model.ActionKind, payload model.ActionPayload) (State, []model.Achievement) {
	current, ok := s.Stats[userID]
	if !ok {
		current = stats.NewStats(userID)
	}
	next, unlocked := stats.Apply(current, action, payload)
	return s.withStats(next), unlocked
}

// =========================================================================
// USERS AND STATS
// =========================================================================

func login(s State, e Login) (State, Outcome, error) {
	userID, err := required("email", e.UserID)
	if err != nil {
		return s, Outcome{}, err
	}
	if _, ok := s.Stats[userID]; ok {
		return s, Outcome{}, nil
	}
	return s.withStats(stats.NewStats(userID)), Outcome{Stats: true}, nil
}

func recordAction(s State, e RecordAction) (State, Outcome, error) {
	if !stats.Known(e.Action) {
		return s, Outcome{}, apperror.ValidationFailed("action", fmt.Sprintf("unknown action %q", e.Action))
	}
	next, unlocked := award(s, e.UserID, e.Action, e.Payload)
	return next, Outcome{Stats: true, Achievements: unlocked}, nil
}

// =========================================================================
// GROUPS
// =========================================================================

func createGroup(s State, e CreateGroup) (State, Outcome, error) {
	name, err := required("name", e.Name)
	if err != nil {
		return s, Outcome{}, err
	}
	if s.groupIndex(e.ID) >= 0 {
		return s, Outcome{}, apperror.Conflict("group", e.ID)
	}

	group := model.StudyGroup{
		ID:      e.ID,
		Name:    name,
		Owner:   e.Owner,
		Members: []string{e.Owner},
	}
	next := s.withGroups(append(slices.Clone(s.Groups), group))
	next, unlocked := award(next, e.Owner, model.ActionCreateGroup, model.ActionPayload{})

	return next, Outcome{Groups: true, Stats: true, Achievements: unlocked}, nil
}

// memberGroup loads a group and checks that userID belongs to it.
func memberGroup(s State, groupID, userID string) (int, model.StudyGroup, error) {
	i := s.groupIndex(groupID)
	if i < 0 {
		return -1, model.StudyGroup{}, apperror.NotFound("group", groupID)
	}
	group := s.Groups[i]
	if !group.HasMember(userID) {
		return -1, model.StudyGroup{}, apperror.Forbidden("you are not a member of this group")
	}
	return i, group, nil
}

// replaceGroup returns a copy of s.Groups with index i set to group.
func replaceGroup(s State, i int, group model.StudyGroup) State {
	groups := slices.Clone(s.Groups)
	groups[i] = group
	return s.withGroups(groups)
}

func addMember(s State, e AddMember) (State, Outcome, error) {
	email, err := required("email", e.Email)
	if err != nil {
		return s, Outcome{}, err
	}
	i, group, err := memberGroup(s, e.GroupID, e.Actor)
	if err != nil {
		return s, Outcome{}, err
	}
	if group.HasMember(email) {
		return s, Outcome{}, nil
	}

	group.Members = append(slices.Clone(group.Members), email)
	return replaceGroup(s, i, group), Outcome{Groups: true}, nil
}

func removeMember(s State, e RemoveMember) (State, Outcome, error) {
	email, err := required("email", e.Email)
	if err != nil {
		return s, Outcome{}, err
	}
	i := s.groupIndex(e.GroupID)
	if i < 0 {
		return s, Outcome{}, apperror.NotFound("group", e.GroupID)
	}
	group := s.Groups[i]
	if e.Actor != group.Owner {
		return s, Outcome{}, apperror.Forbidden("only the group owner can remove members")
	}
	if email == group.Owner {
		return s, Outcome{}, apperror.Forbidden("the group owner cannot be removed")
	}
	if !group.HasMember(email) {
		return s, Outcome{}, nil
	}

	group.Members = slices.DeleteFunc(slices.Clone(group.Members), func(m string) bool { return m == email })
	return replaceGroup(s, i, group), Outcome{Groups: true}, nil
}

// =========================================================================
// CHAT AND NOTES
// =========================================================================

func sendGroupMessage(s State, e SendGroupMessage) (State, Outcome, error) {
	text, err := required("text", e.Text)
	if err != nil {
		return s, Outcome{}, err
	}
	if _, _, err := memberGroup(s, e.GroupID, e.Sender); err != nil {
		return s, Outcome{}, err
	}

	msg := model.GroupChatMessage{
		ID:        e.ID,
		GroupID:   e.GroupID,
		Sender:    e.Sender,
		Text:      text,
		Timestamp: e.Timestamp,
	}
	messages := append(slices.Clone(s.GroupChats[e.GroupID]), msg)

	return s.withChats(e.GroupID, messages), Outcome{GroupChats: true, ChatGroup: e.GroupID}, nil
}

func shareNote(s State, e ShareNote) (State, Outcome, error) {
	title, err := required("title", e.Title)
	if err != nil {
		return s, Outcome{}, err
	}
	content, err := required("content", e.Content)
	if err != nil {
		return s, Outcome{}, err
	}
	if _, _, err := memberGroup(s, e.GroupID, e.Sender); err != nil {
		return s, Outcome{}, err
	}

	note := model.SharedNote{
		ID:        e.ID,
		GroupID:   e.GroupID,
		Sender:    e.Sender,
		Title:     title,
		Content:   content,
		Timestamp: e.Timestamp,
	}
	next := s.withNotes(e.GroupID, append(slices.Clone(s.SharedNotes[e.GroupID]), note))
	next, unlocked := award(next, e.Sender, model.ActionShareNote, model.ActionPayload{})

	return next, Outcome{SharedNotes: true, Stats: true, Achievements: unlocked}, nil
}

func deleteNote(s State, e DeleteNote) (State, Outcome, error) {
	_, group, err := memberGroup(s, e.GroupID, e.Actor)
	if err != nil {
		return s, Outcome{}, err
	}

	notes := s.SharedNotes[e.GroupID]
	i := slices.IndexFunc(notes, func(n model.SharedNote) bool { return n.ID == e.NoteID })
	if i < 0 {
		return s, Outcome{}, apperror.NotFound("note", e.NoteID)
	}
	if notes[i].Sender != e.Actor && group.Owner != e.Actor {
		return s, Outcome{}, apperror.Forbidden("only the sender or the group owner can delete a note")
	}

	return s.withNotes(e.GroupID, slices.Delete(slices.Clone(notes), i, i+1)), Outcome{SharedNotes: true}, nil
}

// =========================================================================
// PLANNER
// =========================================================================

func createGoal(s State, e CreateGoal) (State, Outcome, error) {
	title, err := required("title", e.Title)
	if err != nil {
		return s, Outcome{}, err
	}

	goals := append(slices.Clone(s.Goals[e.UserID]), model.Goal{ID: e.ID, Title: title})
	return s.withGoals(e.UserID, goals), Outcome{GoalsOf: e.UserID}, nil
}

func deleteGoal(s State, e DeleteGoal) (State, Outcome, error) {
	goals := s.Goals[e.UserID]
	i := slices.IndexFunc(goals, func(g model.Goal) bool { return g.ID == e.GoalID })
	if i < 0 {
		return s, Outcome{}, apperror.NotFound("goal", e.GoalID)
	}

	next := s.withGoals(e.UserID, slices.Delete(slices.Clone(goals), i, i+1))
	tasks := slices.DeleteFunc(slices.Clone(s.Tasks[e.UserID]), func(t model.Task) bool {
		return t.GoalID == e.GoalID
	})
	next = next.withTasks(e.UserID, tasks)

	return next, Outcome{GoalsOf: e.UserID, TasksOf: e.UserID}, nil
}

func createTask(s State, e CreateTask) (State, Outcome, error) {
	text, err := required("text", e.Text)
	if err != nil {
		return s, Outcome{}, err
	}
	if !slices.ContainsFunc(s.Goals[e.UserID], func(g model.Goal) bool { return g.ID == e.GoalID }) {
		return s, Outcome{}, apperror.NotFound("goal", e.GoalID)
	}

	task := model.Task{ID: e.ID, GoalID: e.GoalID, Text: text}
	tasks := append(slices.Clone(s.Tasks[e.UserID]), task)
	return s.withTasks(e.UserID, tasks), Outcome{TasksOf: e.UserID}, nil
}

func taskIndex(s State, userID, taskID string) (int, error) {
	i := slices.IndexFunc(s.Tasks[userID], func(t model.Task) bool { return t.ID == taskID })
	if i < 0 {
		return -1, apperror.NotFound("task", taskID)
	}
	return i, nil
}

func toggleTask(s State, e ToggleTask) (State, Outcome, error) {
	i, err := taskIndex(s, e.UserID, e.TaskID)
	if err != nil {
		return s, Outcome{}, err
	}

	tasks := slices.Clone(s.Tasks[e.UserID])
	tasks[i].IsCompleted = !tasks[i].IsCompleted
	return s.withTasks(e.UserID, tasks), Outcome{TasksOf: e.UserID}, nil
}

func deleteTask(s State, e DeleteTask) (State, Outcome, error) {
	i, err := taskIndex(s, e.UserID, e.TaskID)
	if err != nil {
		return s, Outcome{}, err
	}

	tasks := slices.Delete(slices.Clone(s.Tasks[e.UserID]), i, i+1)
	return s.withTasks(e.UserID, tasks), Outcome{TasksOf: e.UserID}, nil
}
