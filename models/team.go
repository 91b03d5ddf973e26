package models

import "time"

type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Stats        TeamStats `json:"team_stats" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TeamStats doubles as an increment delta when passed to the repository.
type TeamStats struct {
	MatchesPlayed int `json:"matches_played" db:"matches_played"`
	Points        int `json:"points" db:"points"`
	Wins          int `json:"wins" db:"wins"`
	Draws         int `json:"draws" db:"draws"`
	Losses        int `json:"losses" db:"losses"`
	GoalsFor      int `json:"goals_for" db:"goals_for"`
	GoalsAgainst  int `json:"goals_against" db:"goals_against"`
}

func (s TeamStats) GoalDifference() int {
	return s.GoalsFor - s.GoalsAgainst
}

// Add returns the field-wise sum of s and delta.
func (s TeamStats) Add(delta TeamStats) TeamStats {
	return TeamStats{
		MatchesPlayed: s.MatchesPlayed + delta.MatchesPlayed,
		Points:        s.Points + delta.Points,
		Wins:          s.Wins + delta.Wins,
		Draws:         s.Draws + delta.Draws,
		Losses:        s.Losses + delta.Losses,
		GoalsFor:      s.GoalsFor + delta.GoalsFor,
		GoalsAgainst:  s.GoalsAgainst + delta.GoalsAgainst,
	}
}
