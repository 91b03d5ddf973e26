package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Dosada05/tourney/brackets"
	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/repositories"
	"golang.org/x/sync/errgroup"
)

type ScheduleResult struct {
	StageItemID    int    `json:"stage_item_id"`
	Generator      string `json:"generator"`
	RoundsCreated  int    `json:"rounds_created"`
	MatchesCreated int    `json:"matches_created"`
}

type ScheduleService interface {
	GenerateSchedule(ctx context.Context, stageItemID int) (*ScheduleResult, error)
	ListRounds(ctx context.Context, stageItemID int) ([]*models.Round, error)
	ListRoundMatches(ctx context.Context, roundID int) ([]*models.Match, error)
}

type scheduleService struct {
	repo       repositories.EntityRepository
	generators map[models.StageType]brackets.ScheduleGenerator
	logger     *slog.Logger
}

func NewScheduleService(repo repositories.EntityRepository, logger *slog.Logger) ScheduleService {
	roundRobin := brackets.NewRoundRobinGenerator()
	return &scheduleService{
		repo: repo,
		generators: map[models.StageType]brackets.ScheduleGenerator{
			models.StageTypeLeague:   roundRobin,
			models.StageTypeGroups:   roundRobin,
			models.StageTypeKnockout: brackets.NewKnockoutGenerator(),
		},
		logger: logger,
	}
}

// GenerateSchedule materializes all rounds and matches of a stage item. Preconditions are
// checked before any write; the claim, round and match writes share one transaction, so a
// failure leaves the stage item without a schedule and generation can simply be retried.
func (s *scheduleService) GenerateSchedule(ctx context.Context, stageItemID int) (*ScheduleResult, error) {
	item, err := s.repo.FindStageItem(ctx, stageItemID)
	if err != nil {
		return nil, handleRepositoryError("find stage item", err)
	}

	var (
		stage      *models.Stage
		roundCount int
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		stage, err = s.repo.FindStage(ctx, item.StageID)
		return handleRepositoryError("find stage", err)
	})
	g.Go(func() error {
		_, err := s.repo.FindTournament(ctx, item.TournamentID)
		return handleRepositoryError("find tournament", err)
	})
	g.Go(func() error {
		var err error
		roundCount, err = s.repo.CountRoundsByStageItem(ctx, item.ID)
		return handleRepositoryError("count rounds", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if roundCount > 0 {
		return nil, ErrScheduleExists
	}

	teamIDs, err := s.resolveSeeds(ctx, item)
	if err != nil {
		return nil, err
	}

	generator, ok := s.generators[stage.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStageType, stage.Type)
	}
	plan, err := generator.GenerateSchedule(ctx, brackets.GenerateScheduleParams{
		StageItemName: item.Name,
		TeamIDs:       teamIDs,
		Cycles:        stage.Config.Cycles(),
	})
	if err != nil {
		switch {
		case errors.Is(err, brackets.ErrNotEnoughTeams):
			return nil, fmt.Errorf("%w: %w", ErrInsufficientTeams, err)
		case errors.Is(err, brackets.ErrInvalidCycles):
			return nil, fmt.Errorf("%w: %w", ErrInvalidStageConfig, err)
		}
		return nil, internalError("generate schedule", err)
	}

	rounds := make([]*models.Round, len(plan.Rounds))
	for i, pr := range plan.Rounds {
		rounds[i] = &models.Round{
			TournamentID: item.TournamentID,
			StageID:      item.StageID,
			StageItemID:  item.ID,
			Name:         pr.Name,
			Number:       pr.Number,
		}
	}

	err = s.repo.WithinTx(ctx, func(tx repositories.EntityRepository) error {
		locked, err := tx.LockStageItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := tx.ClaimSchedule(ctx, item.ID); err != nil {
			return err
		}
		// the plan was built from inputs read before the lock
		if !slices.Equal(locked.DirectTeamIDs(), teamIDs) {
			return ErrInputsChanged
		}
		if err := tx.InsertRounds(ctx, rounds); err != nil {
			return err
		}

		matches := make([]*models.Match, len(plan.Matches))
		for i, pm := range plan.Matches {
			p1, p2 := pm.Participant1ID, pm.Participant2ID
			matches[i] = &models.Match{
				TournamentID:   item.TournamentID,
				StageID:        item.StageID,
				StageItemID:    item.ID,
				RoundID:        rounds[pm.RoundIndex].ID,
				Participant1ID: &p1,
				Participant2ID: &p2,
			}
		}
		return tx.InsertMatches(ctx, matches)
	})
	if err != nil {
		return nil, handleRepositoryError("persist schedule", err)
	}

	result := &ScheduleResult{
		StageItemID:    item.ID,
		Generator:      generator.GetName(),
		RoundsCreated:  len(plan.Rounds),
		MatchesCreated: len(plan.Matches),
	}
	s.logger.InfoContext(ctx, "Schedule generated",
		actorAttr(ctx),
		slog.Int("stage_item_id", item.ID),
		slog.String("generator", result.Generator),
		slog.Int("rounds", result.RoundsCreated),
		slog.Int("matches", result.MatchesCreated),
	)
	return result, nil
}

// resolveSeeds returns the direct team inputs of the stage item in seed order after
// checking that they are distinct and belong to the item's tournament.
func (s *scheduleService) resolveSeeds(ctx context.Context, item *models.StageItem) ([]int, error) {
	teamIDs := item.DirectTeamIDs()
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrInsufficientTeams, len(teamIDs))
	}

	seen := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: team %d", ErrDuplicateTeams, id)
		}
		seen[id] = true
	}

	teams, err := s.repo.FindTeamsByIDs(ctx, teamIDs)
	if err != nil {
		return nil, handleRepositoryError("find teams", err)
	}
	found := make(map[int]bool, len(teams))
	for _, t := range teams {
		if t.TournamentID == item.TournamentID {
			found[t.ID] = true
		}
	}
	for _, id := range teamIDs {
		if !found[id] {
			return nil, fmt.Errorf("%w: team %d", ErrTeamsNotInTournament, id)
		}
	}
	return teamIDs, nil
}

func (s *scheduleService) ListRounds(ctx context.Context, stageItemID int) ([]*models.Round, error) {
	if _, err := s.repo.FindStageItem(ctx, stageItemID); err != nil {
		return nil, handleRepositoryError("find stage item", err)
	}
	rounds, err := s.repo.ListRoundsByStageItem(ctx, stageItemID)
	if err != nil {
		return nil, handleRepositoryError("list rounds", err)
	}
	return rounds, nil
}

func (s *scheduleService) ListRoundMatches(ctx context.Context, roundID int) ([]*models.Match, error) {
	if _, err := s.repo.FindRound(ctx, roundID); err != nil {
		return nil, handleRepositoryError("find round", err)
	}
	matches, err := s.repo.ListMatchesByRound(ctx, roundID)
	if err != nil {
		return nil, handleRepositoryError("list matches", err)
	}
	return matches, nil
}
