package models

// TournamentStanding is one row of a tournament table, computed from team stats.
type TournamentStanding struct {
	Rank            int       `json:"rank"`
	TeamID          int       `json:"team_id"`
	TeamName        string    `json:"team_name"`
	Stats           TeamStats `json:"stats"`
	ScoreDifference int       `json:"score_difference"`
}
