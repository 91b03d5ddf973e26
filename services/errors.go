package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tourney/repositories"
)

// Error kinds. Every error returned by a service wraps exactly one of them, so
// callers can branch with errors.Is on the kind or on the specific error.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
)

var (
	ErrTournamentNotFound = fmt.Errorf("tournament %w", ErrNotFound)
	ErrStageNotFound      = fmt.Errorf("stage %w", ErrNotFound)
	ErrStageItemNotFound  = fmt.Errorf("stage item %w", ErrNotFound)
	ErrRoundNotFound      = fmt.Errorf("round %w", ErrNotFound)
	ErrMatchNotFound      = fmt.Errorf("match %w", ErrNotFound)
	ErrTeamNotFound       = fmt.Errorf("team %w", ErrNotFound)

	ErrScheduleExists    = fmt.Errorf("%w: schedule already generated for stage item", ErrConflict)
	ErrMatchAlreadyEnded = fmt.Errorf("%w: match already ended", ErrConflict)
	ErrInputsChanged     = fmt.Errorf("%w: stage item inputs changed during schedule generation", ErrConflict)

	ErrInsufficientTeams        = fmt.Errorf("%w: at least two teams are required", ErrPreconditionFailed)
	ErrDuplicateTeams           = fmt.Errorf("%w: a team appears more than once in the stage item inputs", ErrPreconditionFailed)
	ErrTeamsNotInTournament     = fmt.Errorf("%w: referenced teams do not exist in the tournament", ErrPreconditionFailed)
	ErrMatchParticipantsMissing = fmt.Errorf("%w: both match participants must be set", ErrPreconditionFailed)
	ErrUnsupportedStageType     = fmt.Errorf("%w: stage type has no schedule generator", ErrPreconditionFailed)
	ErrInvalidStageConfig       = fmt.Errorf("%w: invalid stage configuration", ErrPreconditionFailed)

	ErrInvalidScore         = fmt.Errorf("%w: score values must be non-negative", ErrInvalidArgument)
	ErrWinnerNotParticipant = fmt.Errorf("%w: winner must be one of the match participants", ErrInvalidArgument)
	ErrInvalidStageInputs   = fmt.Errorf("%w: invalid stage inputs", ErrInvalidArgument)

	ErrStatsNotApplied = fmt.Errorf("%w: match ended but team stats were not applied", ErrInternal)
)

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

func isServiceError(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrPreconditionFailed, ErrConflict, ErrInvalidArgument, ErrInternal} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// handleRepositoryError maps repository errors onto the service taxonomy.
// Context errors and errors that already carry a kind pass through unchanged.
func handleRepositoryError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case isServiceError(err):
		return err
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrStageNotFound):
		return ErrStageNotFound
	case errors.Is(err, repositories.ErrStageItemNotFound):
		return ErrStageItemNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrScheduleAlreadyClaimed), errors.Is(err, repositories.ErrRoundNumberConflict):
		return ErrScheduleExists
	case errors.Is(err, repositories.ErrInvalidStageInput):
		return fmt.Errorf("%w: %w", ErrInvalidStageInputs, err)
	case errors.Is(err, repositories.ErrInvalidStageType):
		return fmt.Errorf("%w: %w", ErrUnsupportedStageType, err)
	}
	return internalError(op, err)
}
