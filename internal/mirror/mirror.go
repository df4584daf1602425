// Package mirror keeps every application collection in a namespaced key of a
// key-value store, one JSON document per key.
//
// The mirror never fails its caller. A key that is missing, unreadable or
// corrupt loads as the slot's default, and a write that fails is logged and
// dropped: the in-memory value stays authoritative until the next save.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/repository"
)

// Storage keys. Goals and tasks are stored per user under "<prefix>:<userId>".
const (
	KeyGroups      = "studyBuddyGroups"
	KeyGroupChats  = "studyBuddyGroupChats"
	KeySharedNotes = "studyBuddySharedNotes"
	KeyAllStats    = "studyBuddyAllStats"
	KeyGoalsPrefix = "studyBuddyGoals"
	KeyTasksPrefix = "studyBuddyTasks"
)

// Mirror binds slots to a store.
type Mirror struct {
	store  repository.KVStore
	logger *slog.Logger
}

// New creates a mirror over store.
func New(store repository.KVStore, logger *slog.Logger) *Mirror {
	return &Mirror{store: store, logger: logger}
}

// Slot is a typed view of one key. Default is what Load returns when the key
// holds nothing usable; callers must treat it as read-only.
type Slot[T any] struct {
	Key     string
	Default T
}

// Load decodes the slot's key, falling back to Default.
func (s Slot[T]) Load(ctx context.Context, m *Mirror) T {
	value, ok := s.Fetch(ctx, m)
	if !ok {
		return s.Default
	}
	return value
}

// Save writes the whole value under the slot's key.
//
// The error is returned for callers that want to count failures, but it has
// already been logged; ignoring it is the normal case.
func (s Slot[T]) Save(ctx context.Context, m *Mirror, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		m.logger.Error("encoding slot", "key", s.Key, "error", err)
		return err
	}
	if err := m.store.Put(ctx, s.Key, data); err != nil {
		m.logger.Error("writing slot", "key", s.Key, "error", err)
		return err
	}
	return nil
}

// Fetch is Load without the fallback: ok is false when the key is absent,
// unreadable or corrupt.
func (s Slot[T]) Fetch(ctx context.Context, m *Mirror) (T, bool) {
	var value T

	data, ok, err := m.store.Get(ctx, s.Key)
	if err != nil {
		m.logger.Warn("reading slot", "key", s.Key, "error", err)
		return value, false
	}
	if !ok {
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		m.logger.Warn("decoding slot", "key", s.Key, "error", err)
		return value, false
	}
	return value, true
}

// Poll re-reads the slot every interval and hands each successfully decoded
// value to swap. Absent or corrupt keys are skipped. Poll blocks until ctx is
// cancelled.
//
// swap decides whether the value is new; see Same.
func (s Slot[T]) Poll(ctx context.Context, m *Mirror, interval time.Duration, swap func(latest T)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if latest, ok := s.Fetch(ctx, m); ok {
				swap(latest)
			}
		}
	}
}

// Same reports whether a and b serialize to the same JSON document.
// encoding/json sorts map keys, so the comparison is structural.
func Same[T any](a, b T) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// =========================================================================
// SLOTS
// =========================================================================

var (
	Groups = Slot[[]model.StudyGroup]{
		Key:     KeyGroups,
		Default: []model.StudyGroup{},
	}
	GroupChats = Slot[map[string][]model.GroupChatMessage]{
		Key:     KeyGroupChats,
		Default: map[string][]model.GroupChatMessage{},
	}
	SharedNotes = Slot[map[string][]model.SharedNote]{
		Key:     KeySharedNotes,
		Default: map[string][]model.SharedNote{},
	}
	AllStats = Slot[map[string]model.UserStats]{
		Key:     KeyAllStats,
		Default: map[string]model.UserStats{},
	}
)

// Goals is the slot holding userID's goals.
func Goals(userID string) Slot[[]model.Goal] {
	return Slot[[]model.Goal]{Key: KeyGoalsPrefix + ":" + userID, Default: []model.Goal{}}
}

// Tasks is the slot holding userID's tasks.
func Tasks(userID string) Slot[[]model.Task] {
	return Slot[[]model.Task]{Key: KeyTasksPrefix + ":" + userID, Default: []model.Task{}}
}
