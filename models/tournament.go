package models

import "time"

// Tournament is owned by a club and groups stages and teams. The engine only reads it.
type Tournament struct {
	ID        int                `json:"id" db:"id"`
	ClubID    int                `json:"club_id" db:"club_id"`
	Name      string             `json:"name" db:"name"`
	Settings  TournamentSettings `json:"settings" db:"settings"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

type TournamentSettings struct {
	RankingConfig *RankingSettings `json:"ranking_config,omitempty"`
}

// RankingSettings is the stored, partially filled ranking configuration.
// Nil fields fall back to DefaultRankingConfig.
type RankingSettings struct {
	WinPoints         *int  `json:"win_points,omitempty"`
	DrawPoints        *int  `json:"draw_points,omitempty"`
	LossPoints        *int  `json:"loss_points,omitempty"`
	AddScorePoints    *bool `json:"add_score_points,omitempty"`
	SkipScoreTracking *bool `json:"skip_score_tracking,omitempty"`
}

// RankingConfig controls how many points a result is worth.
type RankingConfig struct {
	WinPoints      int  `json:"win_points"`
	DrawPoints     int  `json:"draw_points"`
	LossPoints     int  `json:"loss_points"`
	AddScorePoints bool `json:"add_score_points"`
	// SkipScoreTracking disables goals_for/goals_against accumulation.
	SkipScoreTracking bool `json:"skip_score_tracking"`
}

func DefaultRankingConfig() RankingConfig {
	return RankingConfig{WinPoints: 3, DrawPoints: 1, LossPoints: 0, AddScorePoints: false}
}

// Resolve fills absent values with the defaults. A nil receiver yields the defaults.
func (s *RankingSettings) Resolve() RankingConfig {
	cfg := DefaultRankingConfig()
	if s == nil {
		return cfg
	}
	if s.WinPoints != nil {
		cfg.WinPoints = *s.WinPoints
	}
	if s.DrawPoints != nil {
		cfg.DrawPoints = *s.DrawPoints
	}
	if s.LossPoints != nil {
		cfg.LossPoints = *s.LossPoints
	}
	if s.AddScorePoints != nil {
		cfg.AddScorePoints = *s.AddScorePoints
	}
	if s.SkipScoreTracking != nil {
		cfg.SkipScoreTracking = *s.SkipScoreTracking
	}
	return cfg
}

func (t *Tournament) RankingConfig() RankingConfig {
	return t.Settings.RankingConfig.Resolve()
}
