package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/study-buddy/internal/ai"
	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
	"github.com/sakif/study-buddy/internal/stats"
	"github.com/sakif/study-buddy/internal/workspace"
)

func sampleQuiz() model.Quiz {
	return model.Quiz{
		{Question: "Capital of France?", Type: model.QuestionMultipleChoice, Options: []string{"Paris", "Rome", "Oslo", "Bern"}, Answer: "Paris"},
		{Question: "The sun is a star.", Type: model.QuestionTrueFalse, Answer: "True"},
		{Question: "Name a noble gas.", Type: model.QuestionShortAnswer, Answer: "Neon"},
		{Question: "2 + 2?", Type: model.QuestionShortAnswer, Answer: "4"},
		{Question: "Water boils at 100C at sea level.", Type: model.QuestionTrueFalse, Answer: "True"},
	}
}

func feedback(correct ...bool) []model.AnswerFeedback {
	out := make([]model.AnswerFeedback, len(correct))
	for i, c := range correct {
		out[i] = model.AnswerFeedback{IsCorrect: c, Feedback: "ok"}
	}
	return out
}

func answers(n int) []*string {
	out := make([]*string, n)
	for i := range out {
		a := "answer"
		out[i] = &a
	}
	return out
}

func newTestStudyService(t *testing.T, collab *fakeAI) (*StudyService, *workspace.Workspace, *fakeClock) {
	t.Helper()
	ws := newTestWorkspace(t)
	clock := newFakeClock()
	return NewStudyService(collab, ws, fakeRenderer{}, clock.Now, testLogger()), ws, clock
}

func TestStudy_FullSession(t *testing.T) {
	collab := &fakeAI{
		guide:    "# Cells",
		quiz:     sampleQuiz(),
		feedback: feedback(true, true, true, true, false),
		reply:    []string{"Cells ", "are small."},
	}
	svc, ws, clock := newTestStudyService(t, collab)
	ctx := context.Background()

	session, err := svc.Start(ada, "")
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), session.StartedAt)

	guide, err := svc.GenerateGuide(ctx, ada, session.ID, "  Cell biology ")
	require.NoError(t, err)
	assert.Equal(t, "Cell biology", guide.Session.Topic)
	assert.Equal(t, "# Cells", guide.Session.Guide)
	assert.Equal(t, "<p># Cells</p>", guide.Session.GuideHTML)
	require.Len(t, guide.NewAchievements, 1)
	assert.Equal(t, stats.FirstGuide, guide.NewAchievements[0].ID)
	assert.Equal(t, []string{""}, collab.instructions, "topic chat starts without an instruction")

	chunks, errs, err := svc.TopicChat(ctx, ada, session.ID, "What is a cell?")
	require.NoError(t, err)
	assert.Equal(t, "Cells are small.", ai.Fold(chunks, nil))
	require.NoError(t, <-errs)

	quiz, err := svc.GenerateQuiz(ctx, ada, session.ID)
	require.NoError(t, err)
	assert.Len(t, quiz, 5)

	result, err := svc.CheckAnswers(ctx, ada, session.ID, answers(5))
	require.NoError(t, err)
	assert.InDelta(t, 80.0, result.Score, 0.001)
	assert.Equal(t, int64(1), result.Stats.QuizzesAced)
	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, stats.AceQuiz, result.NewAchievements[0].ID)

	current, err := svc.Get(ada, session.ID)
	require.NoError(t, err)
	assert.Len(t, current.Results, 5)
	assert.Len(t, current.Chat, 2)

	clock.Advance(61*time.Minute + 400*time.Millisecond)
	summary, err := svc.End(ctx, ada, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3660), summary.StudySeconds)
	require.Len(t, summary.NewAchievements, 1)
	assert.Equal(t, stats.StudyHour, summary.NewAchievements[0].ID)

	mine, _ := ws.Snapshot().StatsFor(ada)
	// guide 10 + quiz 30 + 61 minutes
	assert.Equal(t, int64(101), mine.Points)

	_, err = svc.Get(ada, session.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "ended sessions are gone")
}

func TestStudy_EndAwardsOnce(t *testing.T) {
	svc, ws, clock := newTestStudyService(t, &fakeAI{})
	ctx := context.Background()

	session, err := svc.Start(ada, "")
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	const callers = 8
	var (
		wg    sync.WaitGroup
		ended atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.End(ctx, ada, session.ID); err == nil {
				ended.Add(1)
			} else {
				assert.True(t, errors.Is(err, apperror.ErrNotFound))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ended.Load())
	mine, _ := ws.Snapshot().StatsFor(ada)
	assert.Equal(t, int64(600), mine.StudySeconds)
}

func TestStudy_SessionsArePrivate(t *testing.T) {
	svc, _, _ := newTestStudyService(t, &fakeAI{})

	session, err := svc.Start(ada, "")
	require.NoError(t, err)

	_, err = svc.Get(bob, session.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestStudy_GroupSessionRequiresMembership(t *testing.T) {
	svc, ws, _ := newTestStudyService(t, &fakeAI{})
	_, _, err := ws.Dispatch(context.Background(), state.CreateGroup{ID: "g1", Name: "Physics", Owner: ada})
	require.NoError(t, err)

	session, err := svc.Start(ada, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", session.GroupID)

	_, err = svc.Start(bob, "g1")
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = svc.Start(ada, "nope")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestStudy_UpstreamFailuresUseFixedMessages(t *testing.T) {
	collab := &fakeAI{guide: "# Cells", quiz: sampleQuiz()}
	svc, _, _ := newTestStudyService(t, collab)
	ctx := context.Background()
	session, _ := svc.Start(ada, "")
	_, err := svc.GenerateGuide(ctx, ada, session.ID, "Cells")
	require.NoError(t, err)
	_, err = svc.GenerateQuiz(ctx, ada, session.ID)
	require.NoError(t, err)

	collab.err = errUpstream

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{
			name: "guide",
			call: func() error { _, err := svc.GenerateGuide(ctx, ada, session.ID, "Cells"); return err },
			want: apperror.MsgGuideFailed,
		},
		{
			name: "quiz",
			call: func() error { _, err := svc.GenerateQuiz(ctx, ada, session.ID); return err },
			want: apperror.MsgQuizFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrUpstream))
			assert.True(t, errors.Is(err, errUpstream), "cause stays reachable")
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestStudy_CheckAnswersFailure(t *testing.T) {
	collab := &fakeAI{guide: "g", quiz: sampleQuiz()}
	svc, ws, _ := newTestStudyService(t, collab)
	ctx := context.Background()
	session, _ := svc.Start(ada, "")
	_, _ = svc.GenerateGuide(ctx, ada, session.ID, "Cells")
	_, _ = svc.GenerateQuiz(ctx, ada, session.ID)
	before, _ := ws.Snapshot().StatsFor(ada)

	collab.err = errUpstream
	_, err := svc.CheckAnswers(ctx, ada, session.ID, answers(5))

	require.Error(t, err)
	assert.Equal(t, apperror.MsgCheckFailed, err.Error())
	after, _ := ws.Snapshot().StatsFor(ada)
	assert.Equal(t, before.QuizzesTaken, after.QuizzesTaken, "a failed check records nothing")
}

func TestStudy_PreconditionsAndValidation(t *testing.T) {
	svc, _, _ := newTestStudyService(t, &fakeAI{guide: "g", quiz: sampleQuiz()})
	ctx := context.Background()
	session, _ := svc.Start(ada, "")

	_, err := svc.GenerateGuide(ctx, ada, session.ID, "   ")
	assert.True(t, errors.Is(err, apperror.ErrValidation), "blank topic")

	_, err = svc.GenerateQuiz(ctx, ada, session.ID)
	assert.True(t, errors.Is(err, apperror.ErrValidation), "quiz without topic")

	_, _, err = svc.TopicChat(ctx, ada, session.ID, "hi")
	assert.True(t, errors.Is(err, apperror.ErrValidation), "chat without guide")

	_, err = svc.CheckAnswers(ctx, ada, session.ID, answers(5))
	assert.True(t, errors.Is(err, apperror.ErrValidation), "answers without quiz")

	_, _ = svc.GenerateGuide(ctx, ada, session.ID, "Cells")
	_, _ = svc.GenerateQuiz(ctx, ada, session.ID)
	_, err = svc.CheckAnswers(ctx, ada, session.ID, answers(3))
	assert.True(t, errors.Is(err, apperror.ErrValidation), "wrong answer count")
}

func TestStudy_NewGuideResetsQuiz(t *testing.T) {
	svc, _, _ := newTestStudyService(t, &fakeAI{guide: "g", quiz: sampleQuiz(), feedback: feedback(true, true, true, true, true)})
	ctx := context.Background()
	session, _ := svc.Start(ada, "")
	_, _ = svc.GenerateGuide(ctx, ada, session.ID, "Cells")
	_, _ = svc.GenerateQuiz(ctx, ada, session.ID)
	_, _ = svc.CheckAnswers(ctx, ada, session.ID, answers(5))

	result, err := svc.GenerateGuide(ctx, ada, session.ID, "Atoms")
	require.NoError(t, err)

	assert.Equal(t, "Atoms", result.Session.Topic)
	assert.Empty(t, result.Session.Quiz)
	assert.Empty(t, result.Session.Results)
	assert.Empty(t, result.Session.Chat)
}

func TestStudy_SkippedAnswersPassThrough(t *testing.T) {
	collab := &fakeAI{guide: "g", quiz: sampleQuiz(), feedback: feedback(false, false, false, false, false)}
	svc, _, _ := newTestStudyService(t, collab)
	ctx := context.Background()
	session, _ := svc.Start(ada, "")
	_, _ = svc.GenerateGuide(ctx, ada, session.ID, "Cells")
	_, _ = svc.GenerateQuiz(ctx, ada, session.ID)

	in := answers(5)
	in[2] = nil
	result, err := svc.CheckAnswers(ctx, ada, session.ID, in)

	require.NoError(t, err)
	assert.Zero(t, result.Score)
	assert.Nil(t, collab.lastAnswers[2])
	assert.Empty(t, result.NewAchievements)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil))
	assert.Equal(t, 100.0, Score(feedback(true, true)))
	assert.InDelta(t, 33.333, Score(feedback(true, false, false)), 0.001)
}

func TestAssistant(t *testing.T) {
	collab := &fakeAI{reply: []string{"A derivative ", "is a rate."}}
	svc, _, _ := newTestStudyService(t, collab)
	ctx := context.Background()

	assert.Empty(t, svc.AssistantHistory(ada))

	chunks, errs, err := svc.AskAssistant(ctx, ada, "What is a derivative?")
	require.NoError(t, err)
	assert.Equal(t, "A derivative is a rate.", ai.Fold(chunks, nil))
	require.NoError(t, <-errs)

	_, _, err = svc.AskAssistant(ctx, ada, "And an integral?")
	require.NoError(t, err)

	assert.Len(t, svc.AssistantHistory(ada), 4)
	assert.Equal(t, []string{ai.DoubtAssistantInstruction}, collab.instructions, "one assistant chat per user")

	_, _, err = svc.AskAssistant(ctx, ada, " ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
