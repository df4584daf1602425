package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/study-buddy/internal/handler"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/service"
	"github.com/sakif/study-buddy/internal/stats"
)

func TestStatsHandler(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	h := handler.NewStatsHandler(service.NewStatsService(ws), testLogger())

	t.Run("pomodoro lengths", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandlePomodoro(rr, newRequest(t, http.MethodGet, "/api/pomodoro", nil, ada))

		assert.Equal(t, handler.PomodoroResponse{WorkSeconds: 1500, BreakSeconds: 300}, decode[handler.PomodoroResponse](t, rr))
	})

	t.Run("complete pomodoro", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleCompletePomodoro(rr, newRequest(t, http.MethodPost, "/api/pomodoro/complete", nil, ada))

		require.Equal(t, http.StatusOK, rr.Code)
		award := decode[service.Award](t, rr)
		assert.Equal(t, int64(stats.PomodoroCompleted), award.Stats.Points)
		require.Len(t, award.NewAchievements, 1)
		assert.Equal(t, stats.TimeMaster, award.NewAchievements[0].ID)
	})

	t.Run("achievements", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleAchievements(rr, newRequest(t, http.MethodGet, "/api/achievements", nil, ada))

		catalog := decode[[]model.Achievement](t, rr)
		assert.Len(t, catalog, 6)
	})

	t.Run("leaderboard", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLeaderboard(rr, newRequest(t, http.MethodGet, "/api/leaderboard", nil, bob))

		board := decode[service.Leaderboard](t, rr)
		require.Len(t, board.Standings, 1)
		assert.Equal(t, ada, board.Standings[0].Stats.UserID)
		assert.Equal(t, 0, board.MyRank, "bob has no stats yet")
	})
}
