package stats

import (
	"cmp"
	"slices"

	"github.com/sakif/study-buddy/internal/model"
)

// Rank orders the stats table by points, highest first.
//
// Ties keep input order. A Go map has no order, so the input is first put in
// ascending userId order; that makes the board deterministic.
func Rank(table map[string]model.UserStats) []model.Standing {
	records := make([]model.UserStats, 0, len(table))
	for _, s := range table {
		records = append(records, s)
	}
	slices.SortFunc(records, func(a, b model.UserStats) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return RankRecords(records)
}

// RankRecords ranks an already-ordered list with a stable sort on points.
func RankRecords(records []model.UserStats) []model.Standing {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.UserStats) int {
		return cmp.Compare(b.Points, a.Points)
	})

	standings := make([]model.Standing, len(sorted))
	for i, s := range sorted {
		standings[i] = model.Standing{Rank: i + 1, Stats: s}
	}
	return standings
}

// RankOf returns the 1-based rank of userID, or 0 when absent.
func RankOf(standings []model.Standing, userID string) int {
	for _, st := range standings {
		if st.Stats.UserID == userID {
			return st.Rank
		}
	}
	return 0
}
