package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/sakif/study-buddy/internal/ai"
	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
)

// Renderer turns a markdown guide into HTML. *markdown.Renderer implements it.
type Renderer interface {
	Render(src string) (string, error)
}

// GuideResult is a freshly generated guide plus what it unlocked.
type GuideResult struct {
	Session         model.StudySession  `json:"session"`
	NewAchievements []model.Achievement `json:"newAchievements"`
}

// QuizResult is a graded quiz.
type QuizResult struct {
	Results         []model.AnswerFeedback `json:"results"`
	Score           float64                `json:"score"`
	Stats           model.UserStats        `json:"stats"`
	NewAchievements []model.Achievement    `json:"newAchievements"`
}

// SessionSummary is what ending a session logged.
type SessionSummary struct {
	StudySeconds    int64               `json:"studySeconds"`
	Stats           model.UserStats     `json:"stats"`
	NewAchievements []model.Achievement `json:"newAchievements"`
}

// studySession is the server-side state of one open study session.
type studySession struct {
	mu      sync.Mutex
	session model.StudySession
	chat    ai.ChatSession // nil until a guide exists
}

func (ss *studySession) view() model.StudySession {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	out := ss.session
	if ss.chat != nil {
		out.Chat = ss.chat.History()
	}
	return out
}

// StudyService runs study sessions and the doubt assistant.
//
// Sessions live only in memory: they are tied to a sitting, and ending one
// is what logs the study time. Each AI call is made without holding any
// session lock, so a slow model never blocks reads of the session.
type StudyService struct {
	ai     ai.Collaborator
	ws     Workspace
	render Renderer
	now    Clock
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*studySession
	doubts   map[string]ai.ChatSession // by user
}

func NewStudyService(collab ai.Collaborator, ws Workspace, render Renderer, now Clock, logger *slog.Logger) *StudyService {
	return &StudyService{
		ai:       collab,
		ws:       ws,
		render:   render,
		now:      now,
		logger:   logger,
		sessions: make(map[string]*studySession),
		doubts:   make(map[string]ai.ChatSession),
	}
}

// Start opens a session. groupID is empty for solo study; otherwise the
// caller must belong to the group.
func (s *StudyService) Start(userID, groupID string) (model.StudySession, error) {
	if groupID != "" {
		group, ok := s.ws.Snapshot().Group(groupID)
		if !ok {
			return model.StudySession{}, apperror.NotFound("group", groupID)
		}
		if !group.HasMember(userID) {
			return model.StudySession{}, apperror.Forbidden("you are not a member of this group")
		}
	}

	ss := &studySession{session: model.StudySession{
		ID:        newID(),
		UserID:    userID,
		GroupID:   groupID,
		StartedAt: s.now(),
	}}

	s.mu.Lock()
	s.sessions[ss.session.ID] = ss
	s.mu.Unlock()

	s.logger.Info("study session started", "session_id", ss.session.ID, "user", userID, "group_id", groupID)
	return ss.view(), nil
}

// lookup finds a session owned by userID. Other users' sessions are reported
// as missing.
func (s *StudyService) lookup(userID, id string) (*studySession, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok || ss.session.UserID != userID {
		return nil, apperror.NotFound("study session", id)
	}
	return ss, nil
}

// take removes and returns userID's session. Only one caller can take a
// given session.
func (s *StudyService) take(userID, id string) (*studySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[id]
	if !ok || ss.session.UserID != userID {
		return nil, apperror.NotFound("study session", id)
	}
	delete(s.sessions, id)
	return ss, nil
}

// Get returns the current state of a session.
func (s *StudyService) Get(userID, id string) (model.StudySession, error) {
	ss, err := s.lookup(userID, id)
	if err != nil {
		return model.StudySession{}, err
	}
	return ss.view(), nil
}

// GenerateGuide sets the session topic and generates a guide for it. Any
// previous guide, quiz, results and chat are discarded.
func (s *StudyService) GenerateGuide(ctx context.Context, userID, id, topic string) (GuideResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return GuideResult{}, apperror.ValidationFailed("topic", "topic is required")
	}
	ss, err := s.lookup(userID, id)
	if err != nil {
		return GuideResult{}, err
	}

	ss.mu.Lock()
	ss.session.Topic = topic
	ss.session.Guide, ss.session.GuideHTML = "", ""
	ss.session.Quiz, ss.session.Results = nil, nil
	ss.session.Chat = nil
	ss.chat = nil
	ss.mu.Unlock()

	guide, err := s.ai.GenerateStudyGuide(ctx, topic)
	if err != nil {
		s.logger.Error("generating study guide", "session_id", id, "topic", topic, "error", err)
		return GuideResult{}, apperror.Upstream(apperror.MsgGuideFailed, err)
	}

	html, err := s.render.Render(guide)
	if err != nil {
		s.logger.Warn("rendering study guide", "session_id", id, "error", err)
	}

	ss.mu.Lock()
	ss.session.Guide = guide
	ss.session.GuideHTML = html
	ss.chat = s.ai.NewChat("")
	ss.mu.Unlock()

	_, out, err := s.ws.Dispatch(ctx, state.RecordAction{UserID: userID, Action: model.ActionCreateGuide})
	if err != nil {
		return GuideResult{}, err
	}

	return GuideResult{Session: ss.view(), NewAchievements: orEmpty(out.Achievements)}, nil
}

// GenerateQuiz creates a quiz on the session topic, replacing any earlier
// quiz and its results.
func (s *StudyService) GenerateQuiz(ctx context.Context, userID, id string) (model.Quiz, error) {
	ss, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}

	ss.mu.Lock()
	topic := ss.session.Topic
	if topic != "" {
		ss.session.Quiz, ss.session.Results = nil, nil
	}
	ss.mu.Unlock()

	if topic == "" {
		return nil, apperror.ValidationFailed("topic", "generate a study guide first")
	}

	quiz, err := s.ai.GenerateQuiz(ctx, topic)
	if err != nil {
		s.logger.Error("generating quiz", "session_id", id, "topic", topic, "error", err)
		return nil, apperror.Upstream(apperror.MsgQuizFailed, err)
	}

	ss.mu.Lock()
	ss.session.Quiz = quiz
	ss.mu.Unlock()

	return quiz, nil
}

// CheckAnswers grades answers against the session quiz and records the
// attempt. answers[i] is nil for a skipped question.
func (s *StudyService) CheckAnswers(ctx context.Context, userID, id string, answers []*string) (QuizResult, error) {
	ss, err := s.lookup(userID, id)
	if err != nil {
		return QuizResult{}, err
	}

	ss.mu.Lock()
	topic, quiz := ss.session.Topic, ss.session.Quiz
	ss.mu.Unlock()

	if topic == "" || len(quiz) == 0 {
		return QuizResult{}, apperror.ValidationFailed("quiz", "generate a quiz first")
	}
	if len(answers) != len(quiz) {
		return QuizResult{}, apperror.ValidationFailed("answers", "one answer per question is required")
	}

	results, err := s.ai.CheckAnswers(ctx, topic, quiz, answers)
	if err != nil {
		s.logger.Error("checking answers", "session_id", id, "error", err)
		return QuizResult{}, apperror.Upstream(apperror.MsgCheckFailed, err)
	}

	score := Score(results)

	next, out, err := s.ws.Dispatch(ctx, state.RecordAction{
		UserID:  userID,
		Action:  model.ActionCompleteQuiz,
		Payload: model.ActionPayload{QuizScore: &score},
	})
	if err != nil {
		return QuizResult{}, err
	}

	ss.mu.Lock()
	ss.session.Results = results
	ss.mu.Unlock()

	mine, _ := next.StatsFor(userID)
	return QuizResult{
		Results:         results,
		Score:           score,
		Stats:           mine,
		NewAchievements: orEmpty(out.Achievements),
	}, nil
}

// Score is the percentage of correct results.
func Score(results []model.AnswerFeedback) float64 {
	if len(results) == 0 {
		return 0
	}
	correct := 0
	for _, r := range results {
		if r.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(results)) * 100
}

// TopicChat streams the reply to message from the session's topic chat.
// The chat exists once a guide has been generated.
func (s *StudyService) TopicChat(ctx context.Context, userID, id, message string) (<-chan string, <-chan error, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, apperror.ValidationFailed("message", "message is required")
	}
	ss, err := s.lookup(userID, id)
	if err != nil {
		return nil, nil, err
	}

	ss.mu.Lock()
	chat := ss.chat
	ss.mu.Unlock()

	if chat == nil {
		return nil, nil, apperror.ValidationFailed("topic", "generate a study guide first")
	}

	chunks, errs := chat.SendStream(ctx, message)
	return chunks, errs, nil
}

// End closes the session and logs the elapsed time, rounded to the second.
func (s *StudyService) End(ctx context.Context, userID, id string) (SessionSummary, error) {
	ss, err := s.take(userID, id)
	if err != nil {
		return SessionSummary{}, err
	}

	elapsed := s.now().Sub(ss.session.StartedAt)
	seconds := int64(math.Round(elapsed.Seconds()))

	next, out, err := s.ws.Dispatch(ctx, state.RecordAction{
		UserID:  userID,
		Action:  model.ActionLogStudySession,
		Payload: model.ActionPayload{StudySeconds: seconds},
	})
	if err != nil {
		return SessionSummary{}, err
	}

	s.logger.Info("study session ended", "session_id", id, "user", userID, "seconds", seconds)

	mine, _ := next.StatsFor(userID)
	return SessionSummary{
		StudySeconds:    seconds,
		Stats:           mine,
		NewAchievements: orEmpty(out.Achievements),
	}, nil
}

// =========================================================================
// DOUBT ASSISTANT
// =========================================================================

// doubtChat returns userID's assistant conversation, starting one if needed.
func (s *StudyService) doubtChat(userID string) ai.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.doubts[userID]
	if !ok {
		chat = s.ai.NewChat(ai.DoubtAssistantInstruction)
		s.doubts[userID] = chat
	}
	return chat
}

// AskAssistant streams the doubt assistant's reply to message.
func (s *StudyService) AskAssistant(ctx context.Context, userID, message string) (<-chan string, <-chan error, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, apperror.ValidationFailed("message", "message is required")
	}

	chunks, errs := s.doubtChat(userID).SendStream(ctx, message)
	return chunks, errs, nil
}

// AssistantHistory returns the completed turns of userID's assistant chat.
func (s *StudyService) AssistantHistory(userID string) []model.ChatMessage {
	s.mu.Lock()
	chat, ok := s.doubts[userID]
	s.mu.Unlock()

	if !ok {
		return []model.ChatMessage{}
	}
	return orEmpty(chat.History())
}
