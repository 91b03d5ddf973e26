package brackets

import (
	"context"
	"errors"
)

var (
	ErrNotEnoughTeams = errors.New("not enough teams to generate a schedule (minimum 2)")
	ErrInvalidCycles  = errors.New("round robin cycle count must be at least 1")
)

type GenerateScheduleParams struct {
	StageItemName string
	TeamIDs       []int // seed order
	Cycles        int   // round robin only
}

// PlannedRound is a round before it is persisted.
type PlannedRound struct {
	Number int
	Name   string
}

// PlannedMatch refers to its round by index into SchedulePlan.Rounds, since round ids
// only exist once the rounds are stored.
type PlannedMatch struct {
	RoundIndex     int
	Participant1ID int
	Participant2ID int
}

type SchedulePlan struct {
	Rounds  []PlannedRound
	Matches []PlannedMatch
}

type ScheduleGenerator interface {
	GenerateSchedule(ctx context.Context, params GenerateScheduleParams) (*SchedulePlan, error)

	GetName() string
}
