// Package stats is the points and achievement engine.
//
// Everything here is a pure function of its arguments: no storage, no clock,
// no logger. Callers own persistence; this package only answers "given these
// stats and this action, what are the new stats and what did the user just
// unlock?".
package stats

import (
	"math"
	"slices"

	"github.com/sakif/study-buddy/internal/model"
)

// Point awards. Study time earns StudyMinute points per rounded minute.
const (
	GuideCreated      = 10
	QuizTaken         = 5
	QuizAcedBonus     = 25
	PomodoroCompleted = 15
	NoteShared        = 5
	StudyMinute       = 1
	GroupCreated      = 20

	// AceThreshold is the minimum quiz percentage that counts as aced.
	AceThreshold = 80.0
)

// NewStats returns the zero-valued record created on a user's first login.
func NewStats(userID string) model.UserStats {
	return model.UserStats{
		UserID:       userID,
		Achievements: []string{},
	}
}

// Apply returns the stats that result from action, plus the achievements the
// action unlocked, in catalog order.
//
// The input is never modified: the returned record owns a fresh achievements
// slice. Unknown actions return an equal copy and no achievements.
func Apply(current model.UserStats, action model.ActionKind, payload model.ActionPayload) (model.UserStats, []model.Achievement) {
	next := current
	next.Achievements = slices.Clone(current.Achievements)
	if next.Achievements == nil {
		next.Achievements = []string{}
	}

	var award int64
	switch action {
	case model.ActionCreateGuide:
		next.GuidesCreated++
		award = GuideCreated
	case model.ActionCompleteQuiz:
		next.QuizzesTaken++
		award = QuizTaken
		if payload.QuizScore != nil && *payload.QuizScore >= AceThreshold {
			next.QuizzesAced++
			award += QuizAcedBonus
		}
	case model.ActionCompletePomodoro:
		next.PomodorosCompleted++
		award = PomodoroCompleted
	case model.ActionCreateGroup:
		award = GroupCreated
	case model.ActionShareNote:
		next.NotesShared++
		award = NoteShared
	case model.ActionLogStudySession:
		seconds := max(payload.StudySeconds, 0)
		next.StudySeconds += seconds
		award = int64(math.Round(float64(seconds)/60)) * StudyMinute
	default:
		return next, nil
	}
	next.Points += award

	var unlocked []model.Achievement
	for _, entry := range catalog {
		if slices.Contains(next.Achievements, entry.ID) {
			continue
		}
		if entry.earned(next, action) {
			next.Achievements = append(next.Achievements, entry.ID)
			unlocked = append(unlocked, entry.Achievement)
		}
	}

	return next, unlocked
}

// Known reports whether action is one of the enumerated action kinds.
func Known(action model.ActionKind) bool {
	switch action {
	case model.ActionCreateGuide, model.ActionCompleteQuiz, model.ActionCompletePomodoro,
		model.ActionCreateGroup, model.ActionShareNote, model.ActionLogStudySession:
		return true
	}
	return false
}
