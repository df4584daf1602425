// Package ai talks to a generative-language model over an OpenAI-compatible
// chat completions API.
//
// Every AI feature of the app goes through Collaborator: study guides, quiz
// generation, answer grading and free-form chat. Requests are made once; there
// are no retries and no timeouts beyond the caller's context.
package ai

import (
	"context"
	"strings"

	"github.com/sakif/study-buddy/internal/model"
)

// Collaborator is the generative-language API as the rest of the app sees it.
type Collaborator interface {
	// GenerateStudyGuide returns a markdown study guide for topic.
	GenerateStudyGuide(ctx context.Context, topic string) (string, error)
	// GenerateQuiz returns a five-question quiz with mixed question types.
	GenerateQuiz(ctx context.Context, topic string) (model.Quiz, error)
	// CheckAnswers grades answers against quiz. A nil answer means the
	// question was skipped. The result has exactly one entry per question.
	CheckAnswers(ctx context.Context, topic string, quiz model.Quiz, answers []*string) ([]model.AnswerFeedback, error)
	// NewChat starts a conversation steered by systemInstruction, which may
	// be empty.
	NewChat(systemInstruction string) ChatSession
}

// ChatSession is a multi-turn conversation that remembers its history.
type ChatSession interface {
	// SendStream sends message and streams the reply in chunks. The chunk
	// channel is closed when the reply ends; the error channel then yields at
	// most one error. The turn joins the history only if the stream completes.
	SendStream(ctx context.Context, message string) (<-chan string, <-chan error)
	// History returns the completed turns, oldest first.
	History() []model.ChatMessage
}

// Fold drains chunks into one growing message, calling onUpdate with the
// partial text after every chunk. It returns the full text. onUpdate may be
// nil.
func Fold(chunks <-chan string, onUpdate func(partial string)) string {
	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk)
		if onUpdate != nil {
			onUpdate(b.String())
		}
	}
	return b.String()
}
