package brackets

import (
	"context"
	"fmt"
)

type KnockoutGenerator struct{}

func NewKnockoutGenerator() ScheduleGenerator {
	return &KnockoutGenerator{}
}

func (g *KnockoutGenerator) GetName() string {
	return "Knockout"
}

// GenerateSchedule materializes the opening match of a bracket: one round pairing the
// first two seeds. Seeds beyond the second are not scheduled.
//
// TODO: build later rounds from winner/loser stage inputs once derived inputs can be resolved.
func (g *KnockoutGenerator) GenerateSchedule(ctx context.Context, params GenerateScheduleParams) (*SchedulePlan, error) {
	if len(params.TeamIDs) < 2 {
		return nil, fmt.Errorf("KnockoutGenerator: %w (found %d)", ErrNotEnoughTeams, len(params.TeamIDs))
	}

	return &SchedulePlan{
		Rounds: []PlannedRound{{Number: 1, Name: params.StageItemName}},
		Matches: []PlannedMatch{{
			RoundIndex:     0,
			Participant1ID: params.TeamIDs[0],
			Participant2ID: params.TeamIDs[1],
		}},
	}, nil
}
