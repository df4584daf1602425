package state

import "github.com/sakif/study-buddy/internal/model"

// Event is one of the mutations Reduce understands. The set is closed: only
// types in this package implement it.
type Event interface {
	event()
}

// Login makes sure UserID has a stats record.
type Login struct {
	UserID string
}

// CreateGroup founds a group owned by (and containing) Owner.
type CreateGroup struct {
	ID    string
	Name  string
	Owner string
}

// AddMember adds Email to a group. Actor must already be a member.
type AddMember struct {
	GroupID string
	Actor   string
	Email   string
}

// RemoveMember removes Email from a group. Only the owner may do this, and
// the owner cannot be removed.
type RemoveMember struct {
	GroupID string
	Actor   string
	Email   string
}

// SendGroupMessage appends a message to a group's chat.
type SendGroupMessage struct {
	ID        string
	GroupID   string
	Sender    string
	Text      string
	Timestamp int64
}

// ShareNote posts a note to a group.
type ShareNote struct {
	ID        string
	GroupID   string
	Sender    string
	Title     string
	Content   string
	Timestamp int64
}

// DeleteNote removes a note. Actor must be its sender or the group owner.
type DeleteNote struct {
	GroupID string
	NoteID  string
	Actor   string
}

type CreateGoal struct {
	ID     string
	UserID string
	Title  string
}

// DeleteGoal removes a goal together with its tasks.
type DeleteGoal struct {
	UserID string
	GoalID string
}

type CreateTask struct {
	ID     string
	UserID string
	GoalID string
	Text   string
}

type ToggleTask struct {
	UserID string
	TaskID string
}

type DeleteTask struct {
	UserID string
	TaskID string
}

// RecordAction runs the stats engine for UserID.
type RecordAction struct {
	UserID  string
	Action  model.ActionKind
	Payload model.ActionPayload
}

func (Login) event()            {}
func (CreateGroup) event()      {}
func (AddMember) event()        {}
func (RemoveMember) event()     {}
func (SendGroupMessage) event() {}
func (ShareNote) event()        {}
func (DeleteNote) event()       {}
func (CreateGoal) event()       {}
func (DeleteGoal) event()       {}
func (CreateTask) event()       {}
func (ToggleTask) event()       {}
func (DeleteTask) event()       {}
func (RecordAction) event()     {}
