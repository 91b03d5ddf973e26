package models

import (
	"errors"
	"fmt"
)

type InputSourceType string

const (
	InputSourceDirect InputSourceType = "direct"
	InputSourceWinner InputSourceType = "winner"
	InputSourceLoser  InputSourceType = "loser"
)

var (
	ErrInputUnknownSource     = errors.New("unknown stage input source type")
	ErrInputDirectNeedsTeam   = errors.New("direct stage input requires a team id and no source reference")
	ErrInputDerivedNeedsOneOf = errors.New("derived stage input requires exactly one of source stage item or source match")
)

// StageInput is one seed of a stage item: either a direct team or a reference to the
// winner/loser of another stage item or match.
type StageInput struct {
	SourceType        InputSourceType `json:"source_type"`
	TeamID            *int            `json:"team_id,omitempty"`
	SourceStageItemID *int            `json:"source_stage_item_id,omitempty"`
	SourceMatchID     *int            `json:"source_match_id,omitempty"`
}

func DirectInput(teamID int) StageInput {
	return StageInput{SourceType: InputSourceDirect, TeamID: &teamID}
}

func (in StageInput) Validate() error {
	switch in.SourceType {
	case InputSourceDirect:
		if in.TeamID == nil || in.SourceStageItemID != nil || in.SourceMatchID != nil {
			return ErrInputDirectNeedsTeam
		}
	case InputSourceWinner, InputSourceLoser:
		if in.TeamID != nil || (in.SourceStageItemID == nil) == (in.SourceMatchID == nil) {
			return ErrInputDerivedNeedsOneOf
		}
	default:
		return fmt.Errorf("%w: %q", ErrInputUnknownSource, in.SourceType)
	}
	return nil
}

// IsResolvedTeam reports whether the input already names a concrete team.
func (in StageInput) IsResolvedTeam() bool {
	return in.SourceType == InputSourceDirect && in.TeamID != nil
}

type StageItem struct {
	ID           int          `json:"id" db:"id"`
	StageID      int          `json:"stage_id" db:"stage_id"`
	TournamentID int          `json:"tournament_id" db:"tournament_id"`
	Name         string       `json:"name" db:"name"`
	Inputs       []StageInput `json:"inputs" db:"inputs"`
}

// ValidateInputs checks every input and reports the first offending position.
func (si *StageItem) ValidateInputs() error {
	for i, in := range si.Inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

// DirectTeamIDs returns the team ids of resolved direct inputs in seed order.
func (si *StageItem) DirectTeamIDs() []int {
	ids := make([]int, 0, len(si.Inputs))
	for _, in := range si.Inputs {
		if in.IsResolvedTeam() {
			ids = append(ids, *in.TeamID)
		}
	}
	return ids
}
