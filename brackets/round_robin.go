package brackets

import (
	"context"
	"fmt"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() ScheduleGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateSchedule builds a round robin with the circle method: slot 0 stays fixed and the
// remaining slots rotate clockwise by one after every round. An odd team count gets a bye
// slot appended, so it plays n rounds per cycle instead of n-1; pairings against the bye
// produce no match but the round still counts.
func (g *RoundRobinGenerator) GenerateSchedule(ctx context.Context, params GenerateScheduleParams) (*SchedulePlan, error) {
	if len(params.TeamIDs) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: %w (found %d)", ErrNotEnoughTeams, len(params.TeamIDs))
	}
	if params.Cycles < 1 {
		return nil, fmt.Errorf("RoundRobinGenerator: %w (got %d)", ErrInvalidCycles, params.Cycles)
	}

	slots := make([]*int, 0, len(params.TeamIDs)+1)
	for i := range params.TeamIDs {
		id := params.TeamIDs[i]
		slots = append(slots, &id)
	}
	if len(slots)%2 != 0 {
		slots = append(slots, nil) // bye
	}

	totalSlots := len(slots)
	matchesPerRound := totalSlots / 2
	roundsPerCycle := totalSlots - 1

	plan := &SchedulePlan{
		Rounds:  make([]PlannedRound, 0, params.Cycles*roundsPerCycle),
		Matches: make([]PlannedMatch, 0, params.Cycles*roundsPerCycle*matchesPerRound),
	}

	for cycle := 0; cycle < params.Cycles; cycle++ {
		for r := 0; r < roundsPerCycle; r++ {
			plan.Rounds = append(plan.Rounds, PlannedRound{
				Number: cycle*roundsPerCycle + r + 1,
				Name:   roundName(params.StageItemName, params.Cycles, cycle+1, r+1),
			})
			roundIdx := len(plan.Rounds) - 1

			for i := 0; i < matchesPerRound; i++ {
				home, away := slots[i], slots[totalSlots-1-i]
				if home == nil || away == nil {
					continue
				}
				plan.Matches = append(plan.Matches, PlannedMatch{
					RoundIndex:     roundIdx,
					Participant1ID: *home,
					Participant2ID: *away,
				})
			}

			rotate(slots)
		}
	}

	return plan, nil
}

// rotate moves the last slot to position 1, keeping slot 0 fixed.
func rotate(slots []*int) {
	if len(slots) < 3 {
		return
	}
	last := slots[len(slots)-1]
	copy(slots[2:], slots[1:len(slots)-1])
	slots[1] = last
}

func roundName(itemName string, cycles, cycle, round int) string {
	if cycles > 1 {
		return fmt.Sprintf("%s - Cycle %d, Round %d", itemName, cycle, round)
	}
	return fmt.Sprintf("%s - Round %d", itemName, round)
}
