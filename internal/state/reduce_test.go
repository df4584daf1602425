package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/stats"
)

const (
	owner  = "owner@example.com"
	member = "member@example.com"
	guest  = "guest@example.com"
)

// mustReduce applies events in order and fails the test on any error.
func mustReduce(t *testing.T, s State, events ...Event) State {
	t.Helper()
	for _, ev := range events {
		next, _, err := Reduce(s, ev)
		require.NoError(t, err, "event %T", ev)
		s = next
	}
	return s
}

// withGroup returns a state holding group g1 owned by owner with member in it.
func withGroup(t *testing.T) State {
	t.Helper()
	return mustReduce(t, Empty(),
		Login{UserID: owner},
		CreateGroup{ID: "g1", Name: "Physics", Owner: owner},
		AddMember{GroupID: "g1", Actor: owner, Email: member},
	)
}

func TestLogin_CreatesStatsOnce(t *testing.T) {
	s, out, err := Reduce(Empty(), Login{UserID: owner})
	require.NoError(t, err)
	assert.True(t, out.Stats)
	assert.Equal(t, stats.NewStats(owner), s.Stats[owner])

	again, out, err := Reduce(s, Login{UserID: owner})
	require.NoError(t, err)
	assert.False(t, out.Changed())
	assert.Equal(t, s.Stats, again.Stats)
}

func TestCreateGroup(t *testing.T) {
	s, out, err := Reduce(Empty(), CreateGroup{ID: "g1", Name: "  Physics  ", Owner: owner})
	require.NoError(t, err)

	require.Len(t, s.Groups, 1)
	assert.Equal(t, "Physics", s.Groups[0].Name)
	assert.Equal(t, []string{owner}, s.Groups[0].Members)

	assert.True(t, out.Groups)
	assert.True(t, out.Stats)
	require.Len(t, out.Achievements, 1)
	assert.Equal(t, stats.GroupFounder, out.Achievements[0].ID)
	assert.Equal(t, int64(stats.GroupCreated), s.Stats[owner].Points)
}

func TestCreateGroup_RejectsBlankName(t *testing.T) {
	before := Empty()
	after, out, err := Reduce(before, CreateGroup{ID: "g1", Name: "   ", Owner: owner})

	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.False(t, out.Changed())
	assert.Empty(t, after.Groups)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := withGroup(t)
	membersBefore := append([]string(nil), before.Groups[0].Members...)

	_ = mustReduce(t, before,
		AddMember{GroupID: "g1", Actor: owner, Email: guest},
		SendGroupMessage{ID: "m1", GroupID: "g1", Sender: owner, Text: "hi", Timestamp: 1},
		ShareNote{ID: "n1", GroupID: "g1", Sender: owner, Title: "t", Content: "c"},
	)

	assert.Equal(t, membersBefore, before.Groups[0].Members)
	assert.Empty(t, before.GroupChats)
	assert.Empty(t, before.SharedNotes)
	assert.Equal(t, int64(stats.GroupCreated), before.Stats[owner].Points)
}

// =========================================================================
// MEMBERSHIP
// =========================================================================

func TestAddMember_ExistingMemberIsNoOp(t *testing.T) {
	s := withGroup(t)

	after, out, err := Reduce(s, AddMember{GroupID: "g1", Actor: owner, Email: member})

	require.NoError(t, err)
	assert.False(t, out.Changed())
	assert.Equal(t, s.Groups, after.Groups)
}

func TestAddMember_NonMemberActorForbidden(t *testing.T) {
	s := withGroup(t)

	_, _, err := Reduce(s, AddMember{GroupID: "g1", Actor: guest, Email: "x@example.com"})

	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestRemoveMember(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		email   string
		wantErr error
		changed bool
	}{
		{name: "owner removes member", actor: owner, email: member, changed: true},
		{name: "member cannot remove", actor: member, email: member, wantErr: apperror.ErrForbidden},
		{name: "owner cannot be removed", actor: owner, email: owner, wantErr: apperror.ErrForbidden},
		{name: "absent email is a no-op", actor: owner, email: guest},
		{name: "blank email", actor: owner, email: " ", wantErr: apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := withGroup(t)

			after, out, err := Reduce(s, RemoveMember{GroupID: "g1", Actor: tt.actor, Email: tt.email})

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.changed, out.Groups)
			if tt.changed {
				assert.False(t, after.Groups[0].HasMember(tt.email))
				assert.True(t, after.Groups[0].HasMember(owner))
			}
		})
	}
}

func TestRemoveMember_UnknownGroup(t *testing.T) {
	_, _, err := Reduce(Empty(), RemoveMember{GroupID: "nope", Actor: owner, Email: member})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// =========================================================================
// CHAT AND NOTES
// =========================================================================

func TestSendGroupMessage(t *testing.T) {
	s := withGroup(t)

	after, out, err := Reduce(s, SendGroupMessage{ID: "m1", GroupID: "g1", Sender: member, Text: " hello ", Timestamp: 42})
	require.NoError(t, err)

	assert.Equal(t, "g1", out.ChatGroup)
	assert.True(t, out.GroupChats)
	assert.Equal(t, []model.GroupChatMessage{
		{ID: "m1", GroupID: "g1", Sender: member, Text: "hello", Timestamp: 42},
	}, after.GroupChats["g1"])
}

func TestSendGroupMessage_OutsiderForbidden(t *testing.T) {
	s := withGroup(t)

	_, _, err := Reduce(s, SendGroupMessage{ID: "m1", GroupID: "g1", Sender: guest, Text: "hi"})

	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestShareNote_AwardsStats(t *testing.T) {
	s := withGroup(t)

	after, out, err := Reduce(s, ShareNote{ID: "n1", GroupID: "g1", Sender: member, Title: "Kinematics", Content: "v = u + at"})
	require.NoError(t, err)

	assert.True(t, out.SharedNotes)
	require.Len(t, out.Achievements, 1)
	assert.Equal(t, stats.Collaborator, out.Achievements[0].ID)
	assert.Equal(t, int64(1), after.Stats[member].NotesShared)
	require.Len(t, after.SharedNotes["g1"], 1)
}

func TestDeleteNote_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		wantErr error
	}{
		{name: "sender", actor: member},
		{name: "group owner", actor: owner},
		{name: "other member", actor: guest, wantErr: apperror.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustReduce(t, withGroup(t),
				AddMember{GroupID: "g1", Actor: owner, Email: guest},
				ShareNote{ID: "n1", GroupID: "g1", Sender: member, Title: "t", Content: "c"},
			)

			after, _, err := Reduce(s, DeleteNote{GroupID: "g1", NoteID: "n1", Actor: tt.actor})

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, after.SharedNotes["g1"])
		})
	}
}

func TestDeleteNote_Missing(t *testing.T) {
	_, _, err := Reduce(withGroup(t), DeleteNote{GroupID: "g1", NoteID: "nope", Actor: owner})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// =========================================================================
// PLANNER
// =========================================================================

func TestDeleteGoal_CascadesToTasks(t *testing.T) {
	s := mustReduce(t, Empty(),
		CreateGoal{ID: "goal-1", UserID: owner, Title: "Calculus"},
		CreateGoal{ID: "goal-2", UserID: owner, Title: "History"},
		CreateTask{ID: "t1", UserID: owner, GoalID: "goal-1", Text: "Limits"},
		CreateTask{ID: "t2", UserID: owner, GoalID: "goal-1", Text: "Derivatives"},
		CreateTask{ID: "t3", UserID: owner, GoalID: "goal-2", Text: "WW1"},
	)

	after, out, err := Reduce(s, DeleteGoal{UserID: owner, GoalID: "goal-1"})
	require.NoError(t, err)

	assert.Equal(t, owner, out.GoalsOf)
	assert.Equal(t, owner, out.TasksOf)
	assert.Equal(t, []model.Goal{{ID: "goal-2", Title: "History"}}, after.Goals[owner])
	assert.Equal(t, []model.Task{{ID: "t3", GoalID: "goal-2", Text: "WW1"}}, after.Tasks[owner])
}

func TestCreateTask_UnknownGoal(t *testing.T) {
	_, _, err := Reduce(Empty(), CreateTask{ID: "t1", UserID: owner, GoalID: "missing", Text: "x"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestToggleTask(t *testing.T) {
	s := mustReduce(t, Empty(),
		CreateGoal{ID: "goal-1", UserID: owner, Title: "Calculus"},
		CreateTask{ID: "t1", UserID: owner, GoalID: "goal-1", Text: "Limits"},
	)

	once := mustReduce(t, s, ToggleTask{UserID: owner, TaskID: "t1"})
	assert.True(t, once.Tasks[owner][0].IsCompleted)
	assert.False(t, s.Tasks[owner][0].IsCompleted, "input state must not change")

	twice := mustReduce(t, once, ToggleTask{UserID: owner, TaskID: "t1"})
	assert.False(t, twice.Tasks[owner][0].IsCompleted)
}

func TestPlanner_IsPerUser(t *testing.T) {
	s := mustReduce(t, Empty(),
		CreateGoal{ID: "goal-1", UserID: owner, Title: "Calculus"},
		CreateTask{ID: "t1", UserID: owner, GoalID: "goal-1", Text: "Limits"},
	)

	_, _, err := Reduce(s, DeleteTask{UserID: member, TaskID: "t1"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, _, err = Reduce(s, CreateTask{ID: "t2", UserID: member, GoalID: "goal-1", Text: "x"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// =========================================================================
// RECORD ACTION
// =========================================================================

func TestRecordAction(t *testing.T) {
	score := 85.0
	s, out, err := Reduce(Empty(), RecordAction{
		UserID:  owner,
		Action:  model.ActionCompleteQuiz,
		Payload: model.ActionPayload{QuizScore: &score},
	})
	require.NoError(t, err)

	assert.True(t, out.Stats)
	assert.Equal(t, int64(30), s.Stats[owner].Points)
	require.Len(t, out.Achievements, 1)
	assert.Equal(t, stats.AceQuiz, out.Achievements[0].ID)
}

func TestRecordAction_UnknownAction(t *testing.T) {
	_, out, err := Reduce(Empty(), RecordAction{UserID: owner, Action: "DANCE"})

	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.False(t, out.Changed())
}

func TestGroupsFor(t *testing.T) {
	s := mustReduce(t, withGroup(t), CreateGroup{ID: "g2", Name: "Chemistry", Owner: guest})

	assert.Len(t, s.GroupsFor(owner), 1)
	assert.Len(t, s.GroupsFor(guest), 1)
	assert.Empty(t, s.GroupsFor("nobody@example.com"))
}
