package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/study-buddy/internal/ai"
	"github.com/sakif/study-buddy/internal/auth"
	"github.com/sakif/study-buddy/internal/chathub"
	"github.com/sakif/study-buddy/internal/mirror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/repository/memory"
	"github.com/sakif/study-buddy/internal/workspace"
)

const (
	ada = "ada@example.com"
	bob = "bob@example.com"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func newTestWorkspace(t *testing.T) (*workspace.Workspace, *chathub.Hub) {
	t.Helper()
	logger := testLogger()
	hub := chathub.New()
	return workspace.Open(context.Background(), mirror.New(memory.New(), logger), hub, logger), hub
}

// newRequest builds a request as the given user. body is JSON-encoded
// unless it is already a string. Path values are given as name, value pairs.
func newRequest(t *testing.T, method, target string, body any, user string, path ...string) *http.Request {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), user))
	}
	for i := 0; i+1 < len(path); i += 2 {
		req.SetPathValue(path[i], path[i+1])
	}
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// StubAI is a scripted ai.Collaborator.
type StubAI struct {
	Guide    string
	Quiz     model.Quiz
	Feedback []model.AnswerFeedback
	Reply    []string
	Err      error
}

func (s *StubAI) GenerateStudyGuide(context.Context, string) (string, error) {
	return s.Guide, s.Err
}

func (s *StubAI) GenerateQuiz(context.Context, string) (model.Quiz, error) {
	return s.Quiz, s.Err
}

func (s *StubAI) CheckAnswers(context.Context, string, model.Quiz, []*string) ([]model.AnswerFeedback, error) {
	return s.Feedback, s.Err
}

func (s *StubAI) NewChat(string) ai.ChatSession {
	return &stubChat{ai: s}
}

type stubChat struct {
	ai *StubAI
}

func (c *stubChat) SendStream(context.Context, string) (<-chan string, <-chan error) {
	chunks := make(chan string, len(c.ai.Reply))
	errs := make(chan error, 1)
	for _, r := range c.ai.Reply {
		chunks <- r
	}
	if c.ai.Err != nil {
		errs <- c.ai.Err
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func (c *stubChat) History() []model.ChatMessage { return nil }
