package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tourney/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrStageNotFound          = errors.New("stage not found")
	ErrStageItemNotFound      = errors.New("stage item not found")
	ErrRoundNotFound          = errors.New("round not found")
	ErrMatchNotFound          = errors.New("match not found")
	ErrTeamNotFound           = errors.New("team not found")
	ErrScheduleAlreadyClaimed = errors.New("schedule already claimed for stage item")
	ErrRoundNumberConflict    = errors.New("round number already used in stage item")
	ErrInvalidReference       = errors.New("referenced entity does not exist")
	ErrInvalidStageInput      = errors.New("invalid stage input")
	ErrInvalidStageType       = errors.New("invalid stage type")
)

// EntityRepository is the persistence capability the engine needs. Implementations must
// make ClaimSchedule, UpdateMatchConditional and IncrementTeamStats atomic with respect
// to concurrent callers.
type EntityRepository interface {
	FindTournament(ctx context.Context, id int) (*models.Tournament, error)
	FindStage(ctx context.Context, id int) (*models.Stage, error)
	FindStageItem(ctx context.Context, id int) (*models.StageItem, error)
	// LockStageItem reads the stage item and holds it until the surrounding transaction
	// ends. Schedule generation and input changes both lock it first.
	LockStageItem(ctx context.Context, id int) (*models.StageItem, error)
	FindRound(ctx context.Context, id int) (*models.Round, error)
	FindMatch(ctx context.Context, id int) (*models.Match, error)
	FindTeam(ctx context.Context, id int) (*models.Team, error)
	// FindTeamsByIDs returns the teams that exist among ids; missing ids are skipped.
	FindTeamsByIDs(ctx context.Context, ids []int) ([]*models.Team, error)
	ListTeamsByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)

	CountRoundsByStageItem(ctx context.Context, stageItemID int) (int, error)
	ListRoundsByStageItem(ctx context.Context, stageItemID int) ([]*models.Round, error)
	ListMatchesByRound(ctx context.Context, roundID int) ([]*models.Match, error)
	ListEndedMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// ListMatchesByTournament orders by round, then match id.
	ListMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// ListMatchesByTeam orders by start time with unscheduled matches last, then match id.
	ListMatchesByTeam(ctx context.Context, teamID int) ([]*models.Match, error)

	UpdateStageItemInputs(ctx context.Context, stageItemID int, inputs []models.StageInput) error
	UpdateStageItemName(ctx context.Context, stageItemID int, name string) error

	// ClaimSchedule records that a schedule is being generated for the stage item.
	// A second claim fails with ErrScheduleAlreadyClaimed.
	ClaimSchedule(ctx context.Context, stageItemID int) error
	IsScheduleClaimed(ctx context.Context, stageItemID int) (bool, error)
	// InsertRounds and InsertMatches assign IDs to the passed entities.
	InsertRounds(ctx context.Context, rounds []*models.Round) error
	InsertMatches(ctx context.Context, matches []*models.Match) error

	// UpdateMatchConditional applies patch only if the match satisfies pred and
	// returns the number of rows changed (0 or 1).
	UpdateMatchConditional(ctx context.Context, matchID int, pred models.MatchPredicate, patch models.MatchPatch) (int64, error)
	// IncrementTeamStats adds delta to the team's stats field by field.
	IncrementTeamStats(ctx context.Context, teamID int, delta models.TeamStats) error
	// ResetTeamStats overwrites the team's stats. Only standings recomputation uses it.
	ResetTeamStats(ctx context.Context, teamID int, stats models.TeamStats) error

	// WithinTx runs fn against a repository bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repo EntityRepository) error) error
}

func validateInputs(inputs []models.StageInput) error {
	item := models.StageItem{Inputs: inputs}
	if err := item.ValidateInputs(); err != nil {
		return errors.Join(ErrInvalidStageInput, err)
	}
	return nil
}

func validateStageType(t models.StageType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStageType, t)
	}
	return nil
}
