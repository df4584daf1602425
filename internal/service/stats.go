package service

import (
	"context"
	"time"

	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/state"
	"github.com/sakif/study-buddy/internal/stats"
)

// Pomodoro timer lengths.
const (
	PomodoroWork  = 25 * time.Minute
	PomodoroBreak = 5 * time.Minute
)

// Profile is a user's standing in the game.
type Profile struct {
	Stats    model.UserStats     `json:"stats"`
	Rank     int                 `json:"rank"`
	Unlocked []model.Achievement `json:"unlocked"`
}

// Leaderboard is the ranked table plus the caller's own position.
type Leaderboard struct {
	Standings []model.Standing `json:"standings"`
	MyRank    int              `json:"myRank"`
}

// Award is the result of an action that earns points.
type Award struct {
	Stats           model.UserStats     `json:"stats"`
	NewAchievements []model.Achievement `json:"newAchievements"`
}

// StatsService exposes points, achievements and the leaderboard.
type StatsService struct {
	ws Workspace
}

func NewStatsService(ws Workspace) *StatsService {
	return &StatsService{ws: ws}
}

// Catalog lists every achievement in display order.
func (s *StatsService) Catalog() []model.Achievement {
	return stats.Catalog()
}

// Profile returns userID's stats, rank and unlocked achievements. A user
// without a record gets zero stats and rank 0.
func (s *StatsService) Profile(userID string) Profile {
	st := s.ws.Snapshot()

	mine, ok := st.StatsFor(userID)
	if !ok {
		mine = stats.NewStats(userID)
	}
	return Profile{
		Stats:    mine,
		Rank:     stats.RankOf(stats.Rank(st.Stats), userID),
		Unlocked: orEmpty(stats.Unlocked(mine)),
	}
}

// Leaderboard ranks every user by points.
func (s *StatsService) Leaderboard(userID string) Leaderboard {
	standings := stats.Rank(s.ws.Snapshot().Stats)
	return Leaderboard{
		Standings: orEmpty(standings),
		MyRank:    stats.RankOf(standings, userID),
	}
}

// Record runs action through the stats engine for userID.
func (s *StatsService) Record(ctx context.Context, userID string, action model.ActionKind, payload model.ActionPayload) (Award, error) {
	next, out, err := s.ws.Dispatch(ctx, state.RecordAction{UserID: userID, Action: action, Payload: payload})
	if err != nil {
		return Award{}, err
	}
	mine, _ := next.StatsFor(userID)
	return Award{Stats: mine, NewAchievements: orEmpty(out.Achievements)}, nil
}

// CompletePomodoro records one finished focus session.
func (s *StatsService) CompletePomodoro(ctx context.Context, userID string) (Award, error) {
	return s.Record(ctx, userID, model.ActionCompletePomodoro, model.ActionPayload{})
}
