package stats

import (
	"slices"

	"github.com/sakif/study-buddy/internal/model"
)

// Achievement identifiers, in catalog order.
const (
	FirstGuide   = "FIRST_GUIDE"
	AceQuiz      = "ACE_QUIZ"
	TimeMaster   = "TIME_MASTER"
	GroupFounder = "GROUP_FOUNDER"
	Collaborator = "COLLABORATOR"
	StudyHour    = "STUDY_HOUR"
)

type catalogEntry struct {
	model.Achievement
	earned func(s model.UserStats, action model.ActionKind) bool
}

// catalog is fixed for the lifetime of the process. Order matters: it is the
// order in which newly unlocked achievements are appended and reported.
var catalog = []catalogEntry{
	{
		Achievement: model.Achievement{ID: FirstGuide, Name: "First Steps", Description: "Generate your first study guide.", Icon: "book-open"},
		earned:      func(s model.UserStats, _ model.ActionKind) bool { return s.GuidesCreated >= 1 },
	},
	{
		Achievement: model.Achievement{ID: AceQuiz, Name: "Quiz Whiz", Description: "Ace a quiz with a score of 80% or higher.", Icon: "sparkles"},
		earned:      func(s model.UserStats, _ model.ActionKind) bool { return s.QuizzesAced >= 1 },
	},
	{
		Achievement: model.Achievement{ID: TimeMaster, Name: "Time Master", Description: "Complete your first Pomodoro focus session.", Icon: "clock"},
		earned:      func(s model.UserStats, _ model.ActionKind) bool { return s.PomodorosCompleted >= 1 },
	},
	{
		Achievement: model.Achievement{ID: GroupFounder, Name: "Group Founder", Description: "Create your first study group.", Icon: "users"},
		earned:      func(_ model.UserStats, a model.ActionKind) bool { return a == model.ActionCreateGroup },
	},
	{
		Achievement: model.Achievement{ID: Collaborator, Name: "Collaborator", Description: "Share your first note in a group.", Icon: "document-text"},
		earned:      func(s model.UserStats, _ model.ActionKind) bool { return s.NotesShared >= 1 },
	},
	{
		Achievement: model.Achievement{ID: StudyHour, Name: "Dedicated Scholar", Description: "Log over an hour of total study time.", Icon: "book-open"},
		earned:      func(s model.UserStats, _ model.ActionKind) bool { return s.StudySeconds >= 3600 },
	},
}

// Catalog returns a copy of the achievement catalog in its fixed order.
func Catalog() []model.Achievement {
	out := make([]model.Achievement, len(catalog))
	for i, entry := range catalog {
		out[i] = entry.Achievement
	}
	return out
}

// Lookup finds a catalog entry by id.
func Lookup(id string) (model.Achievement, bool) {
	for _, entry := range catalog {
		if entry.ID == id {
			return entry.Achievement, true
		}
	}
	return model.Achievement{}, false
}

// Unlocked returns the catalog entries held by s, in catalog order.
// Identifiers outside the catalog are ignored.
func Unlocked(s model.UserStats) []model.Achievement {
	out := []model.Achievement{}
	for _, entry := range catalog {
		if slices.Contains(s.Achievements, entry.ID) {
			out = append(out, entry.Achievement)
		}
	}
	return out
}
