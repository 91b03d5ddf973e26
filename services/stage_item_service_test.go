package services

import (
	"context"
	"testing"

	"github.com/Dosada05/tourney/models"
)

func TestAssignTeams_SeedsAllTournamentTeams(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 3, noInputs: true})
	svc := NewStageItemService(w.repo, discardLogger())
	ctx := context.Background()

	item, err := svc.AssignTeams(ctx, w.item.ID)
	if err != nil {
		t.Fatalf("AssignTeams: %v", err)
	}
	ids := item.DirectTeamIDs()
	assertEq(t, len(ids), 3)
	for i, team := range w.teams {
		assertEq(t, ids[i], team.ID)
	}

	stored, _ := svc.GetStageItem(ctx, w.item.ID)
	assertEq(t, len(stored.Inputs), 3)
}

func TestClearTeams(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 2})
	svc := NewStageItemService(w.repo, discardLogger())

	item, err := svc.ClearTeams(context.Background(), w.item.ID)
	if err != nil {
		t.Fatalf("ClearTeams: %v", err)
	}
	assertEq(t, len(item.Inputs), 0)

	_, err = NewScheduleService(w.repo, discardLogger()).GenerateSchedule(context.Background(), w.item.ID)
	assertErrIs(t, err, ErrInsufficientTeams)
}

func TestSetInputs(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 3, noInputs: true})
	svc := NewStageItemService(w.repo, discardLogger())
	ctx := context.Background()

	inputs := []models.StageInput{
		models.DirectInput(w.teams[2].ID),
		models.DirectInput(w.teams[0].ID),
		{SourceType: models.InputSourceWinner, SourceStageItemID: intPtr(w.item.ID)},
	}
	item, err := svc.SetInputs(ctx, w.item.ID, inputs)
	if err != nil {
		t.Fatalf("SetInputs: %v", err)
	}
	assertEq(t, item.DirectTeamIDs()[0], w.teams[2].ID)

	_, err = svc.SetInputs(ctx, w.item.ID, []models.StageInput{{SourceType: models.InputSourceDirect}})
	assertErrIs(t, err, ErrInvalidStageInputs, ErrInvalidArgument, models.ErrInputDirectNeedsTeam)

	_, err = svc.SetInputs(ctx, w.item.ID, []models.StageInput{models.DirectInput(9999)})
	assertErrIs(t, err, ErrTeamsNotInTournament)
}

func TestStageItemInputsFrozenAfterSchedule(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 2})
	w.scheduledMatch(t)
	svc := NewStageItemService(w.repo, discardLogger())
	ctx := context.Background()

	_, err := svc.ClearTeams(ctx, w.item.ID)
	assertErrIs(t, err, ErrScheduleExists, ErrConflict)
	_, err = svc.AssignTeams(ctx, w.item.ID)
	assertErrIs(t, err, ErrScheduleExists)

	item, _ := svc.GetStageItem(ctx, w.item.ID)
	assertEq(t, len(item.Inputs), 2)
}

func TestRenameStageItem(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 2})
	svc := NewStageItemService(w.repo, discardLogger())

	item, err := svc.RenameStageItem(context.Background(), w.item.ID, "Group B")
	if err != nil {
		t.Fatalf("RenameStageItem: %v", err)
	}
	assertEq(t, item.Name, "Group B")

	_, err = svc.RenameStageItem(context.Background(), 31337, "x")
	assertErrIs(t, err, ErrStageItemNotFound)
}

func TestStageItemInputsFrozenOnceClaimed(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 2})
	svc := NewStageItemService(w.repo, discardLogger())
	ctx := context.Background()

	// a claim without rounds is what a generation in flight looks like
	if err := w.repo.ClaimSchedule(ctx, w.item.ID); err != nil {
		t.Fatalf("ClaimSchedule: %v", err)
	}

	_, err := svc.AssignTeams(ctx, w.item.ID)
	assertErrIs(t, err, ErrScheduleExists, ErrConflict)
	_, err = svc.SetInputs(ctx, w.item.ID, []models.StageInput{models.DirectInput(w.teams[1].ID)})
	assertErrIs(t, err, ErrScheduleExists)
	_, err = svc.ClearTeams(ctx, w.item.ID)
	assertErrIs(t, err, ErrScheduleExists)

	item, _ := svc.GetStageItem(ctx, w.item.ID)
	assertEq(t, len(item.Inputs), 2)
	assertEq(t, item.DirectTeamIDs()[0], w.teams[0].ID)
}

func TestStageItemWrites_UnknownItem(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 2})
	svc := NewStageItemService(w.repo, discardLogger())

	_, err := svc.ClearTeams(context.Background(), 31337)
	assertErrIs(t, err, ErrStageItemNotFound, ErrNotFound)
}

func TestStageItemWrites_LogActor(t *testing.T) {
	w := newWorld(t, worldOpts{teams: 2})
	logger, buf := recordLogger()
	svc := NewStageItemService(w.repo, logger)

	if _, err := svc.ClearTeams(WithActor(context.Background(), 42), w.item.ID); err != nil {
		t.Fatalf("ClearTeams: %v", err)
	}
	rec := logRecord(t, buf, "Stage item inputs updated")
	assertEq(t, rec["user_id"], any(float64(42)))
	assertEq(t, rec["stage_item_id"], any(float64(w.item.ID)))

	buf.Reset()
	if _, err := svc.AssignTeams(context.Background(), w.item.ID); err != nil {
		t.Fatalf("AssignTeams: %v", err)
	}
	rec = logRecord(t, buf, "Stage item inputs updated")
	if _, ok := rec["user_id"]; ok {
		t.Fatalf("user_id logged without an actor: %v", rec)
	}
}
