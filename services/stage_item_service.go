package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/repositories"
)

type StageItemService interface {
	GetStageItem(ctx context.Context, stageItemID int) (*models.StageItem, error)
	RenameStageItem(ctx context.Context, stageItemID int, name string) (*models.StageItem, error)
	// AssignTeams seeds the stage item with every team of its tournament in id order.
	AssignTeams(ctx context.Context, stageItemID int) (*models.StageItem, error)
	SetInputs(ctx context.Context, stageItemID int, inputs []models.StageInput) (*models.StageItem, error)
	ClearTeams(ctx context.Context, stageItemID int) (*models.StageItem, error)
}

type stageItemService struct {
	repo   repositories.EntityRepository
	logger *slog.Logger
}

func NewStageItemService(repo repositories.EntityRepository, logger *slog.Logger) StageItemService {
	return &stageItemService{repo: repo, logger: logger}
}

func (s *stageItemService) GetStageItem(ctx context.Context, stageItemID int) (*models.StageItem, error) {
	item, err := s.repo.FindStageItem(ctx, stageItemID)
	if err != nil {
		return nil, handleRepositoryError("find stage item", err)
	}
	return item, nil
}

func (s *stageItemService) RenameStageItem(ctx context.Context, stageItemID int, name string) (*models.StageItem, error) {
	if err := s.repo.UpdateStageItemName(ctx, stageItemID, name); err != nil {
		return nil, handleRepositoryError("rename stage item", err)
	}
	s.logger.InfoContext(ctx, "Stage item renamed", actorAttr(ctx), slog.Int("stage_item_id", stageItemID))
	return s.GetStageItem(ctx, stageItemID)
}

func (s *stageItemService) AssignTeams(ctx context.Context, stageItemID int) (*models.StageItem, error) {
	return s.replaceInputs(ctx, stageItemID, func(tx repositories.EntityRepository, item *models.StageItem) ([]models.StageInput, error) {
		teams, err := tx.ListTeamsByTournament(ctx, item.TournamentID)
		if err != nil {
			return nil, err
		}
		inputs := make([]models.StageInput, 0, len(teams))
		for _, t := range teams {
			inputs = append(inputs, models.DirectInput(t.ID))
		}
		return inputs, nil
	})
}

// SetInputs replaces the stage item inputs with an explicit seed list. Direct inputs must
// reference teams of the same tournament.
func (s *stageItemService) SetInputs(ctx context.Context, stageItemID int, inputs []models.StageInput) (*models.StageItem, error) {
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: input %d: %w", ErrInvalidStageInputs, i, err)
		}
	}

	return s.replaceInputs(ctx, stageItemID, func(tx repositories.EntityRepository, item *models.StageItem) ([]models.StageInput, error) {
		check := models.StageItem{Inputs: inputs}
		ids := check.DirectTeamIDs()
		if len(ids) == 0 {
			return inputs, nil
		}
		teams, err := tx.FindTeamsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		found := make(map[int]bool, len(teams))
		for _, t := range teams {
			if t.TournamentID == item.TournamentID {
				found[t.ID] = true
			}
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: team %d", ErrTeamsNotInTournament, id)
			}
		}
		return inputs, nil
	})
}

func (s *stageItemService) ClearTeams(ctx context.Context, stageItemID int) (*models.StageItem, error) {
	return s.replaceInputs(ctx, stageItemID, func(repositories.EntityRepository, *models.StageItem) ([]models.StageInput, error) {
		return []models.StageInput{}, nil
	})
}

// replaceInputs locks the stage item, refuses once a schedule is claimed or has rounds,
// and writes the inputs built by build, all in one transaction.
func (s *stageItemService) replaceInputs(
	ctx context.Context,
	stageItemID int,
	build func(tx repositories.EntityRepository, item *models.StageItem) ([]models.StageInput, error),
) (*models.StageItem, error) {
	var item *models.StageItem
	err := s.repo.WithinTx(ctx, func(tx repositories.EntityRepository) error {
		locked, err := tx.LockStageItem(ctx, stageItemID)
		if err != nil {
			return err
		}
		claimed, err := tx.IsScheduleClaimed(ctx, stageItemID)
		if err != nil {
			return err
		}
		n, err := tx.CountRoundsByStageItem(ctx, stageItemID)
		if err != nil {
			return err
		}
		if claimed || n > 0 {
			return ErrScheduleExists
		}

		inputs, err := build(tx, locked)
		if err != nil {
			return err
		}
		if err := tx.UpdateStageItemInputs(ctx, stageItemID, inputs); err != nil {
			return err
		}
		locked.Inputs = inputs
		item = locked
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError("update stage inputs", err)
	}

	s.logger.InfoContext(ctx, "Stage item inputs updated",
		actorAttr(ctx),
		slog.Int("stage_item_id", item.ID),
		slog.Int("inputs", len(item.Inputs)),
	)
	return item, nil
}
