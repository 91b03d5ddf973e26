package models

type StageType string

const (
	StageTypeLeague   StageType = "league"
	StageTypeKnockout StageType = "knockout"
	StageTypeGroups   StageType = "groups"
)

func (t StageType) Valid() bool {
	switch t {
	case StageTypeLeague, StageTypeKnockout, StageTypeGroups:
		return true
	}
	return false
}

// StageConfig carries format-specific settings; only the fields of the stage's type are used.
type StageConfig struct {
	// league
	TeamsCount int `json:"teams_count,omitempty"`
	Rounds     int `json:"rounds,omitempty"` // number of round-robin cycles, 0 means 1

	// knockout
	StartingRound   int  `json:"starting_round,omitempty"`
	ThirdPlaceMatch bool `json:"third_place_match,omitempty"`

	// groups
	GroupsCount     int `json:"groups_count,omitempty"`
	TeamsPerGroup   int `json:"teams_per_group,omitempty"`
	AdvancePerGroup int `json:"advance_per_group,omitempty"`
}

// Cycles returns how many times a round robin is repeated.
func (c StageConfig) Cycles() int {
	if c.Rounds < 1 {
		return 1
	}
	return c.Rounds
}

type Stage struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Name         string      `json:"name" db:"name"`
	Order        int         `json:"order" db:"stage_order"`
	Type         StageType   `json:"type" db:"type"`
	Config       StageConfig `json:"config" db:"config"`
}
