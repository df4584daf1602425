package model

import "time"

// QuestionType enumerates the quiz question formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Question is a single quiz item together with its correct answer.
type Question struct {
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Answer   string       `json:"answer"`
}

// Quiz is an ordered list of questions.
type Quiz []Question

// AnswerFeedback grades one answer. Results align positionally with the quiz.
type AnswerFeedback struct {
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage is one turn of an AI conversation.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// StudySession is one solo or group study sitting.
// GroupID is empty for solo study.
type StudySession struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	GroupID   string           `json:"groupId,omitempty"`
	Topic     string           `json:"topic"`
	Guide     string           `json:"guide,omitempty"`
	GuideHTML string           `json:"guideHtml,omitempty"`
	Quiz      Quiz             `json:"quiz,omitempty"`
	Results   []AnswerFeedback `json:"results,omitempty"`
	Chat      []ChatMessage    `json:"chat,omitempty"`
	StartedAt time.Time        `json:"startedAt"`
}
