package model

// ActionKind tags a user accomplishment that may award points.
type ActionKind string

const (
	ActionCreateGuide      ActionKind = "CREATE_GUIDE"
	ActionCompleteQuiz     ActionKind = "COMPLETE_QUIZ"
	ActionCompletePomodoro ActionKind = "COMPLETE_POMODORO"
	ActionCreateGroup      ActionKind = "CREATE_GROUP"
	ActionShareNote        ActionKind = "SHARE_NOTE"
	ActionLogStudySession  ActionKind = "LOG_STUDY_SESSION"
)

// ActionPayload carries action-specific data.
//
// QuizScore is a pointer so that "no score" and "scored 0%" stay distinct.
type ActionPayload struct {
	QuizScore    *float64 `json:"quizScore,omitempty"`
	StudySeconds int64    `json:"studySeconds,omitempty"`
}

// UserStats is the gamification record for one user.
type UserStats struct {
	UserID             string   `json:"userId"`
	Points             int64    `json:"points"`
	Achievements       []string `json:"achievements"`
	GuidesCreated      int64    `json:"guidesCreated"`
	QuizzesTaken       int64    `json:"quizzesTaken"`
	QuizzesAced        int64    `json:"quizzesAced"`
	PomodorosCompleted int64    `json:"pomodorosCompleted"`
	NotesShared        int64    `json:"notesShared"`
	StudySeconds       int64    `json:"studySeconds"`
}

// Achievement is an entry of the static achievement catalog.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank  int       `json:"rank"`
	Stats UserStats `json:"stats"`
}
