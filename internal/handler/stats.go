package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/study-buddy/internal/service"
)

// StatsHandler serves achievements, the leaderboard and the Pomodoro timer.
type StatsHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

func NewStatsHandler(stats *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// PomodoroResponse holds the timer lengths in seconds.
type PomodoroResponse struct {
	WorkSeconds  int `json:"workSeconds"`
	BreakSeconds int `json:"breakSeconds"`
}

// HandleAchievements lists the achievement catalog.
//
// HTTP: GET /api/achievements
func (h *StatsHandler) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Catalog())
}

// HandleLeaderboard ranks every user by points.
//
// HTTP: GET /api/leaderboard
func (h *StatsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Leaderboard(currentUser(r)))
}

// HandlePomodoro returns the timer lengths.
//
// HTTP: GET /api/pomodoro
func (h *StatsHandler) HandlePomodoro(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PomodoroResponse{
		WorkSeconds:  int(service.PomodoroWork.Seconds()),
		BreakSeconds: int(service.PomodoroBreak.Seconds()),
	})
}

// HandleCompletePomodoro records a finished focus period.
//
// HTTP: POST /api/pomodoro/complete
func (h *StatsHandler) HandleCompletePomodoro(w http.ResponseWriter, r *http.Request) {
	award, err := h.stats.CompletePomodoro(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, award)
}
