package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/chathub"
	"github.com/sakif/study-buddy/internal/mirror"
	"github.com/sakif/study-buddy/internal/repository/memory"
	"github.com/sakif/study-buddy/internal/stats"
	"github.com/sakif/study-buddy/internal/workspace"
)

const (
	ada = "ada@example.com"
	bob = "bob@example.com"
	eve = "eve@example.com"
)

func newTestGroupService(t *testing.T) (*GroupService, *fakeClock) {
	t.Helper()
	logger := testLogger()
	hub := chathub.New()
	ws := workspace.Open(context.Background(), mirror.New(memory.New(), logger), hub, logger)
	clock := newFakeClock()
	return NewGroupService(ws, hub, clock.Now, logger), clock
}

func TestGroupService_CreateAndList(t *testing.T) {
	svc, _ := newTestGroupService(t)
	ctx := context.Background()

	group, unlocked, err := svc.Create(ctx, ada, "Organic Chemistry")
	require.NoError(t, err)

	assert.NotEmpty(t, group.ID)
	assert.Equal(t, ada, group.Owner)
	assert.Equal(t, []string{ada}, group.Members)
	require.Len(t, unlocked, 1)
	assert.Equal(t, stats.GroupFounder, unlocked[0].ID)

	assert.Len(t, svc.List(ada), 1)
	assert.Empty(t, svc.List(bob))
}

func TestGroupService_Membership(t *testing.T) {
	svc, _ := newTestGroupService(t)
	ctx := context.Background()
	group, _, _ := svc.Create(ctx, ada, "Physics")

	updated, err := svc.AddMember(ctx, ada, group.ID, "  BOB@example.com ")
	require.NoError(t, err)
	assert.Equal(t, []string{ada, bob}, updated.Members)

	_, err = svc.RemoveMember(ctx, bob, group.ID, ada)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	require.NoError(t, svc.CheckMember(bob, group.ID))

	updated, err = svc.RemoveMember(ctx, ada, group.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{ada}, updated.Members)
	assert.True(t, errors.Is(svc.CheckMember(bob, group.ID), apperror.ErrForbidden))
	assert.True(t, errors.Is(svc.CheckMember(bob, "missing"), apperror.ErrNotFound))

	_, err = svc.Get(bob, group.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestGroupService_Chat(t *testing.T) {
	svc, clock := newTestGroupService(t)
	ctx := context.Background()
	group, _, _ := svc.Create(ctx, ada, "Physics")

	sub, history, err := svc.Subscribe(ada, group.ID)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, history)

	msg, err := svc.SendMessage(ctx, ada, group.ID, "anyone done problem 4?")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().UnixMilli(), msg.Timestamp)
	assert.Equal(t, ada, msg.Sender)

	select {
	case update := <-sub.C:
		require.Len(t, update, 1)
		assert.Equal(t, msg.ID, update[0].ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the message")
	}

	messages, err := svc.Messages(ada, group.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	_, err = svc.Messages(eve, group.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, _, err = svc.Subscribe(eve, group.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = svc.SendMessage(ctx, ada, group.ID, "   ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestGroupService_Notes(t *testing.T) {
	svc, _ := newTestGroupService(t)
	ctx := context.Background()
	group, _, _ := svc.Create(ctx, ada, "Physics")
	_, _ = svc.AddMember(ctx, ada, group.ID, bob)

	note, unlocked, err := svc.ShareNote(ctx, bob, group.ID, "Kinematics", "v = u + at")
	require.NoError(t, err)
	assert.Equal(t, bob, note.Sender)
	require.Len(t, unlocked, 1)
	assert.Equal(t, stats.Collaborator, unlocked[0].ID)

	notes, err := svc.Notes(ada, group.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	// The owner may delete anybody's note.
	require.NoError(t, svc.DeleteNote(ctx, ada, group.ID, note.ID))
	notes, _ = svc.Notes(ada, group.ID)
	assert.Empty(t, notes)

	err = svc.DeleteNote(ctx, ada, group.ID, note.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
