package entities

import "time"

// UserDuelStats aggregates a user's resolved duels over a window
type UserDuelStats struct {
	UserID int64 `db:"user_id"`
	Profit int64 `db:"profit"`
	Games  int64 `db:"games"`
}

// PeriodStats is the games/profit tally for one period
type PeriodStats struct {
	Games  int64
	Profit int64
}

// UserStats holds a user's duel results over the standard periods
type UserStats struct {
	UserID int64
	Day    PeriodStats
	Week   PeriodStats
	Month  PeriodStats
}

// Add counts a resolved duel into the periods its finish time falls into
func (s *UserStats) Add(duel *Duel, now time.Time) {
	if duel.FinishedAt == nil || duel.Status != DuelStatusResolved {
		return
	}
	age := now.Sub(*duel.FinishedAt)
	profit := duel.ProfitFor(s.UserID)

	if age <= 30*24*time.Hour {
		s.Month.Games++
		s.Month.Profit += profit
	}
	if age <= 7*24*time.Hour {
		s.Week.Games++
		s.Week.Profit += profit
	}
	if age <= 24*time.Hour {
		s.Day.Games++
		s.Day.Profit += profit
	}
}

// Rating is the leaderboard view for one requesting user
type Rating struct {
	Top          []UserDuelStats
	Place        int // 1-based, 0 when the user has no games in the window
	TotalPlayers int
	Self         UserDuelStats
	WindowDays   int
}
