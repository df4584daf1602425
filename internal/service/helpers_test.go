package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sakif/study-buddy/internal/ai"
	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/chathub"
	"github.com/sakif/study-buddy/internal/mirror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/repository/memory"
	"github.com/sakif/study-buddy/internal/workspace"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestWorkspace returns a workspace over a fresh in-memory store.
func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	logger := testLogger()
	return workspace.Open(context.Background(), mirror.New(memory.New(), logger), chathub.New(), logger)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; ok {
		return apperror.Conflict("user", user.ID)
	}
	user.CreatedAt, user.UpdatedAt = time.Now(), time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			u.Login = user.Login
			*user = *u
			return nil
		}
	}
	if existing, ok := f.users[user.ID]; ok {
		existing.GitHubID, existing.Login = user.GitHubID, user.Login
		*user = *existing
		return nil
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

// fakeAI is a scripted ai.Collaborator.
type fakeAI struct {
	guide    string
	quiz     model.Quiz
	feedback []model.AnswerFeedback
	reply    []string
	err      error

	mu           sync.Mutex
	instructions []string
	lastAnswers  []*string
}

func (f *fakeAI) GenerateStudyGuide(context.Context, string) (string, error) {
	return f.guide, f.err
}

func (f *fakeAI) GenerateQuiz(context.Context, string) (model.Quiz, error) {
	return f.quiz, f.err
}

func (f *fakeAI) CheckAnswers(_ context.Context, _ string, _ model.Quiz, answers []*string) ([]model.AnswerFeedback, error) {
	f.mu.Lock()
	f.lastAnswers = answers
	f.mu.Unlock()
	return f.feedback, f.err
}

func (f *fakeAI) NewChat(instruction string) ai.ChatSession {
	f.mu.Lock()
	f.instructions = append(f.instructions, instruction)
	f.mu.Unlock()
	return &fakeChat{reply: f.reply, err: f.err}
}

type fakeChat struct {
	reply   []string
	err     error
	mu      sync.Mutex
	history []model.ChatMessage
}

func (c *fakeChat) SendStream(_ context.Context, message string) (<-chan string, <-chan error) {
	chunks := make(chan string, len(c.reply))
	errs := make(chan error, 1)
	if c.err != nil {
		errs <- c.err
	} else {
		full := ""
		for _, r := range c.reply {
			chunks <- r
			full += r
		}
		c.mu.Lock()
		c.history = append(c.history,
			model.ChatMessage{Role: model.RoleUser, Text: message},
			model.ChatMessage{Role: model.RoleModel, Text: full},
		)
		c.mu.Unlock()
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func (c *fakeChat) History() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatMessage(nil), c.history...)
}

// fakeRenderer wraps the source in a paragraph.
type fakeRenderer struct{}

func (fakeRenderer) Render(src string) (string, error) { return "<p>" + src + "</p>", nil }

var errUpstream = errors.New("model unavailable")
