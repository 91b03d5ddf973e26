// Package ranking turns a finished match into per-team stat increments.
package ranking

import "github.com/Dosada05/tourney/models"

type Side int

const (
	NoWinner Side = iota // draw
	Side1
	Side2
)

// Outcome is the final result of a match as seen from its two sides.
type Outcome struct {
	Score  models.Score
	Winner Side
}

// Deltas are the increments to apply to each side's team stats.
type Deltas struct {
	Side1 models.TeamStats
	Side2 models.TeamStats
}

// OutcomeFor resolves winnerID against the match participants. A nil winner is a draw.
func OutcomeFor(match *models.Match, winnerID *int, score models.Score) Outcome {
	out := Outcome{Score: score, Winner: NoWinner}
	if winnerID == nil {
		return out
	}
	switch {
	case match.Participant1ID != nil && *match.Participant1ID == *winnerID:
		out.Winner = Side1
	case match.Participant2ID != nil && *match.Participant2ID == *winnerID:
		out.Winner = Side2
	}
	return out
}

func ApplyOutcome(outcome Outcome, cfg models.RankingConfig) Deltas {
	d := Deltas{
		Side1: models.TeamStats{MatchesPlayed: 1},
		Side2: models.TeamStats{MatchesPlayed: 1},
	}

	switch outcome.Winner {
	case Side1:
		win(&d.Side1, cfg)
		lose(&d.Side2, cfg)
	case Side2:
		win(&d.Side2, cfg)
		lose(&d.Side1, cfg)
	default:
		d.Side1.Draws, d.Side1.Points = 1, cfg.DrawPoints
		d.Side2.Draws, d.Side2.Points = 1, cfg.DrawPoints
	}

	if !cfg.SkipScoreTracking {
		d.Side1.GoalsFor, d.Side1.GoalsAgainst = outcome.Score.Side1, outcome.Score.Side2
		d.Side2.GoalsFor, d.Side2.GoalsAgainst = outcome.Score.Side2, outcome.Score.Side1
	}
	if cfg.AddScorePoints {
		d.Side1.Points += outcome.Score.Side1
		d.Side2.Points += outcome.Score.Side2
	}
	return d
}

func win(s *models.TeamStats, cfg models.RankingConfig) {
	s.Wins = 1
	s.Points = cfg.WinPoints
}

func lose(s *models.TeamStats, cfg models.RankingConfig) {
	s.Losses = 1
	s.Points = cfg.LossPoints
}
