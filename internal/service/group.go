package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/chathub"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
)

// GroupService manages study groups, their chat and their shared notes.
type GroupService struct {
	ws     Workspace
	hub    *chathub.Hub
	now    Clock
	logger *slog.Logger
}

func NewGroupService(ws Workspace, hub *chathub.Hub, now Clock, logger *slog.Logger) *GroupService {
	return &GroupService{ws: ws, hub: hub, now: now, logger: logger}
}

// List returns the groups userID belongs to.
func (s *GroupService) List(userID string) []model.StudyGroup {
	return s.ws.Snapshot().GroupsFor(userID)
}

// Get returns a group the caller belongs to.
func (s *GroupService) Get(userID, groupID string) (model.StudyGroup, error) {
	return s.memberOf(s.ws.Snapshot(), userID, groupID)
}

func (s *GroupService) memberOf(st state.State, userID, groupID string) (model.StudyGroup, error) {
	group, ok := st.Group(groupID)
	if !ok {
		return model.StudyGroup{}, apperror.NotFound("group", groupID)
	}
	if !group.HasMember(userID) {
		return model.StudyGroup{}, apperror.Forbidden("you are not a member of this group")
	}
	return group, nil
}

// Create founds a group owned by userID.
func (s *GroupService) Create(ctx context.Context, userID, name string) (model.StudyGroup, []model.Achievement, error) {
	id := newID()
	next, out, err := s.ws.Dispatch(ctx, state.CreateGroup{ID: id, Name: name, Owner: userID})
	if err != nil {
		return model.StudyGroup{}, nil, err
	}

	group, _ := next.Group(id)
	s.logger.Info("group created", "group_id", id, "owner", userID)
	return group, out.Achievements, nil
}

// AddMember adds email to the group. Adding an existing member succeeds
// without changing anything.
func (s *GroupService) AddMember(ctx context.Context, userID, groupID, email string) (model.StudyGroup, error) {
	next, _, err := s.ws.Dispatch(ctx, state.AddMember{
		GroupID: groupID,
		Actor:   userID,
		Email:   normalizeEmail(email),
	})
	if err != nil {
		return model.StudyGroup{}, err
	}
	group, _ := next.Group(groupID)
	return group, nil
}

// RemoveMember removes email from the group. Only the owner may do this.
func (s *GroupService) RemoveMember(ctx context.Context, userID, groupID, email string) (model.StudyGroup, error) {
	next, _, err := s.ws.Dispatch(ctx, state.RemoveMember{
		GroupID: groupID,
		Actor:   userID,
		Email:   normalizeEmail(email),
	})
	if err != nil {
		return model.StudyGroup{}, err
	}
	group, _ := next.Group(groupID)
	return group, nil
}

// Messages returns the group's chat history.
func (s *GroupService) Messages(userID, groupID string) ([]model.GroupChatMessage, error) {
	st := s.ws.Snapshot()
	if _, err := s.memberOf(st, userID, groupID); err != nil {
		return nil, err
	}
	return orEmpty(st.GroupChats[groupID]), nil
}

// SendMessage posts text to the group chat.
func (s *GroupService) SendMessage(ctx context.Context, userID, groupID, text string) (model.GroupChatMessage, error) {
	ev := state.SendGroupMessage{
		ID:        newID(),
		GroupID:   groupID,
		Sender:    userID,
		Text:      text,
		Timestamp: s.now().UnixMilli(),
	}
	next, _, err := s.ws.Dispatch(ctx, ev)
	if err != nil {
		return model.GroupChatMessage{}, err
	}

	messages := next.GroupChats[groupID]
	return messages[len(messages)-1], nil
}

// Subscribe opens a live feed of the group's chat for a member. The current
// history is returned alongside so the caller can send it first.
func (s *GroupService) Subscribe(userID, groupID string) (*chathub.Subscription, []model.GroupChatMessage, error) {
	// Subscribe before reading so no message falls between the two.
	sub := s.hub.Subscribe(groupID)

	st := s.ws.Snapshot()
	if _, err := s.memberOf(st, userID, groupID); err != nil {
		sub.Close()
		return nil, nil, err
	}
	return sub, orEmpty(st.GroupChats[groupID]), nil
}

// CheckMember reports whether userID may still read the group. Live feeds
// call it before every update because membership can change after they open.
func (s *GroupService) CheckMember(userID, groupID string) error {
	_, err := s.memberOf(s.ws.Snapshot(), userID, groupID)
	return err
}

// Notes returns the group's shared notes.
func (s *GroupService) Notes(userID, groupID string) ([]model.SharedNote, error) {
	st := s.ws.Snapshot()
	if _, err := s.memberOf(st, userID, groupID); err != nil {
		return nil, err
	}
	return orEmpty(st.SharedNotes[groupID]), nil
}

// ShareNote posts a note to the group. Sharing earns points.
func (s *GroupService) ShareNote(ctx context.Context, userID, groupID, title, content string) (model.SharedNote, []model.Achievement, error) {
	ev := state.ShareNote{
		ID:        newID(),
		GroupID:   groupID,
		Sender:    userID,
		Title:     title,
		Content:   content,
		Timestamp: s.now().UnixMilli(),
	}
	next, out, err := s.ws.Dispatch(ctx, ev)
	if err != nil {
		return model.SharedNote{}, nil, err
	}

	notes := next.SharedNotes[groupID]
	return notes[len(notes)-1], out.Achievements, nil
}

// DeleteNote removes a note. The sender and the group owner may do this.
func (s *GroupService) DeleteNote(ctx context.Context, userID, groupID, noteID string) error {
	_, _, err := s.ws.Dispatch(ctx, state.DeleteNote{GroupID: groupID, NoteID: noteID, Actor: userID})
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
