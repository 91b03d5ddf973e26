package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tourney/models"
)

func newTestBolt(t *testing.T) *BoltRepository {
	t.Helper()
	repo, err := NewBoltRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewBoltRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

type fixture struct {
	tournament *models.Tournament
	stage      *models.Stage
	item       *models.StageItem
	teams      []*models.Team
}

func seed(t *testing.T, repo *BoltRepository, teamCount int) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{tournament: &models.Tournament{ClubID: 1, Name: "Spring Cup"}}
	if err := repo.CreateTournament(ctx, f.tournament); err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	f.stage = &models.Stage{TournamentID: f.tournament.ID, Name: "League", Order: 1, Type: models.StageTypeLeague}
	if err := repo.CreateStage(ctx, f.stage); err != nil {
		t.Fatalf("CreateStage: %v", err)
	}
	f.item = &models.StageItem{StageID: f.stage.ID, TournamentID: f.tournament.ID, Name: "Table"}
	for i := 0; i < teamCount; i++ {
		team := &models.Team{TournamentID: f.tournament.ID, Name: "Team"}
		if err := repo.CreateTeam(ctx, team); err != nil {
			t.Fatalf("CreateTeam: %v", err)
		}
		f.teams = append(f.teams, team)
		f.item.Inputs = append(f.item.Inputs, models.DirectInput(team.ID))
	}
	if err := repo.CreateStageItem(ctx, f.item); err != nil {
		t.Fatalf("CreateStageItem: %v", err)
	}
	return f
}

func intPtr(v int) *int { return &v }

func assertEq[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBolt_FindNotFound(t *testing.T) {
	repo := newTestBolt(t)
	ctx := context.Background()

	if _, err := repo.FindTournament(ctx, 1); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
	if _, err := repo.FindStageItem(ctx, 1); !errors.Is(err, ErrStageItemNotFound) {
		t.Fatalf("expected ErrStageItemNotFound, got %v", err)
	}
	if _, err := repo.FindMatch(ctx, 1); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestBolt_StageItemRoundTrip(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 3)

	got, err := repo.FindStageItem(context.Background(), f.item.ID)
	if err != nil {
		t.Fatalf("FindStageItem: %v", err)
	}
	assertEq(t, len(got.Inputs), 3)
	assertEq(t, *got.Inputs[0].TeamID, f.teams[0].ID)
	assertEq(t, got.Inputs[2].SourceType, models.InputSourceDirect)
}

func TestBolt_UpdateStageItemInputsValidates(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()

	bad := []models.StageInput{{SourceType: models.InputSourceWinner}}
	err := repo.UpdateStageItemInputs(ctx, f.item.ID, bad)
	if !errors.Is(err, ErrInvalidStageInput) || !errors.Is(err, models.ErrInputDerivedNeedsOneOf) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	ok := []models.StageInput{{SourceType: models.InputSourceLoser, SourceMatchID: intPtr(4)}}
	if err := repo.UpdateStageItemInputs(ctx, f.item.ID, ok); err != nil {
		t.Fatalf("UpdateStageItemInputs: %v", err)
	}
	got, _ := repo.FindStageItem(ctx, f.item.ID)
	assertEq(t, len(got.Inputs), 1)
	assertEq(t, got.Inputs[0].SourceType, models.InputSourceLoser)

	if err := repo.UpdateStageItemInputs(ctx, 999, nil); !errors.Is(err, ErrStageItemNotFound) {
		t.Fatalf("expected ErrStageItemNotFound, got %v", err)
	}
}

func TestBolt_ClaimScheduleOnce(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()

	if err := repo.ClaimSchedule(ctx, f.item.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := repo.ClaimSchedule(ctx, f.item.ID); !errors.Is(err, ErrScheduleAlreadyClaimed) {
		t.Fatalf("expected ErrScheduleAlreadyClaimed, got %v", err)
	}
	if err := repo.ClaimSchedule(ctx, 999); !errors.Is(err, ErrStageItemNotFound) {
		t.Fatalf("expected ErrStageItemNotFound, got %v", err)
	}
}

func TestBolt_WithinTxRollsBack(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(tx EntityRepository) error {
		if err := tx.ClaimSchedule(ctx, f.item.ID); err != nil {
			return err
		}
		rounds := []*models.Round{{TournamentID: f.tournament.ID, StageID: f.stage.ID, StageItemID: f.item.ID, Name: "R1", Number: 1}}
		if err := tx.InsertRounds(ctx, rounds); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	n, err := repo.CountRoundsByStageItem(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("CountRoundsByStageItem: %v", err)
	}
	assertEq(t, n, 0)
	if err := repo.ClaimSchedule(ctx, f.item.ID); err != nil {
		t.Fatalf("claim after rollback: %v", err)
	}
}

func TestBolt_InsertRoundsAndMatches(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()

	rounds := []*models.Round{
		{TournamentID: f.tournament.ID, StageID: f.stage.ID, StageItemID: f.item.ID, Name: "R2", Number: 2},
		{TournamentID: f.tournament.ID, StageID: f.stage.ID, StageItemID: f.item.ID, Name: "R1", Number: 1},
	}
	if err := repo.InsertRounds(ctx, rounds); err != nil {
		t.Fatalf("InsertRounds: %v", err)
	}
	if rounds[0].ID == 0 || rounds[1].ID == 0 {
		t.Fatal("round ids not assigned")
	}

	dup := []*models.Round{{StageItemID: f.item.ID, Number: 1}}
	if err := repo.InsertRounds(ctx, dup); !errors.Is(err, ErrRoundNumberConflict) {
		t.Fatalf("expected ErrRoundNumberConflict, got %v", err)
	}

	listed, err := repo.ListRoundsByStageItem(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("ListRoundsByStageItem: %v", err)
	}
	assertEq(t, len(listed), 2)
	assertEq(t, listed[0].Number, 1)

	m := &models.Match{
		TournamentID: f.tournament.ID, StageID: f.stage.ID, StageItemID: f.item.ID, RoundID: rounds[1].ID,
		Participant1ID: intPtr(f.teams[0].ID), Participant2ID: intPtr(f.teams[1].ID),
	}
	if err := repo.InsertMatches(ctx, []*models.Match{m}); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}
	matches, err := repo.ListMatchesByRound(ctx, rounds[1].ID)
	if err != nil {
		t.Fatalf("ListMatchesByRound: %v", err)
	}
	assertEq(t, len(matches), 1)
	assertEq(t, matches[0].ID, m.ID)
	assertEq(t, matches[0].Status(), models.MatchStatusScheduled)

	orphan := &models.Match{RoundID: 999}
	if err := repo.InsertMatches(ctx, []*models.Match{orphan}); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestBolt_UpdateMatchConditional(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()

	rounds := []*models.Round{{StageItemID: f.item.ID, Number: 1}}
	if err := repo.InsertRounds(ctx, rounds); err != nil {
		t.Fatalf("InsertRounds: %v", err)
	}
	m := &models.Match{RoundID: rounds[0].ID, Participant1ID: intPtr(f.teams[0].ID), Participant2ID: intPtr(f.teams[1].ID)}
	if err := repo.InsertMatches(ctx, []*models.Match{m}); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}

	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	patch := models.MatchPatch{Score: &models.Score{Side1: 2, Side2: 1}, SetWinner: true, WinnerID: intPtr(f.teams[0].ID), EndTime: &end}

	n, err := repo.UpdateMatchConditional(ctx, m.ID, models.MatchPredicate{Unended: true}, patch)
	if err != nil {
		t.Fatalf("UpdateMatchConditional: %v", err)
	}
	assertEq(t, n, int64(1))

	n, err = repo.UpdateMatchConditional(ctx, m.ID, models.MatchPredicate{Unended: true}, patch)
	if err != nil {
		t.Fatalf("UpdateMatchConditional: %v", err)
	}
	assertEq(t, n, int64(0))

	got, _ := repo.FindMatch(ctx, m.ID)
	assertEq(t, got.Status(), models.MatchStatusEnded)
	assertEq(t, got.Score, models.Score{Side1: 2, Side2: 1})
	assertEq(t, *got.WinnerID, f.teams[0].ID)

	n, err = repo.UpdateMatchConditional(ctx, 999, models.MatchPredicate{}, patch)
	if err != nil {
		t.Fatalf("UpdateMatchConditional: %v", err)
	}
	assertEq(t, n, int64(0))
}

func TestBolt_IncrementTeamStatsConcurrent(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()
	teamID := f.teams[0].ID

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.IncrementTeamStats(ctx, teamID, models.TeamStats{MatchesPlayed: 1, Points: 3, Wins: 1, GoalsFor: 2}); err != nil {
				t.Errorf("IncrementTeamStats: %v", err)
			}
		}()
	}
	wg.Wait()

	team, err := repo.FindTeam(ctx, teamID)
	if err != nil {
		t.Fatalf("FindTeam: %v", err)
	}
	assertEq(t, team.Stats, models.TeamStats{MatchesPlayed: workers, Points: 3 * workers, Wins: workers, GoalsFor: 2 * workers})

	if err := repo.IncrementTeamStats(ctx, 999, models.TeamStats{}); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}

func TestBolt_TeamLookups(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 3)
	ctx := context.Background()

	teams, err := repo.FindTeamsByIDs(ctx, []int{f.teams[2].ID, 999, f.teams[0].ID, f.teams[0].ID})
	if err != nil {
		t.Fatalf("FindTeamsByIDs: %v", err)
	}
	assertEq(t, len(teams), 2)
	assertEq(t, teams[0].ID, f.teams[0].ID)

	all, err := repo.ListTeamsByTournament(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("ListTeamsByTournament: %v", err)
	}
	assertEq(t, len(all), 3)

	other, err := repo.ListTeamsByTournament(ctx, 999)
	if err != nil {
		t.Fatalf("ListTeamsByTournament: %v", err)
	}
	assertEq(t, len(other), 0)
}

func TestBolt_CreateStageRejectsUnknownType(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 0)

	stage := &models.Stage{TournamentID: f.tournament.ID, Name: "Swiss", Order: 2, Type: "swiss"}
	if err := repo.CreateStage(context.Background(), stage); !errors.Is(err, ErrInvalidStageType) {
		t.Fatalf("expected ErrInvalidStageType, got %v", err)
	}
	assertEq(t, stage.ID, 0)
}

func TestBolt_IsScheduleClaimed(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 2)
	ctx := context.Background()

	claimed, err := repo.IsScheduleClaimed(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("IsScheduleClaimed: %v", err)
	}
	assertEq(t, claimed, false)

	err = repo.WithinTx(ctx, func(tx EntityRepository) error {
		if _, err := tx.LockStageItem(ctx, f.item.ID); err != nil {
			return err
		}
		return tx.ClaimSchedule(ctx, f.item.ID)
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	claimed, err = repo.IsScheduleClaimed(ctx, f.item.ID)
	if err != nil {
		t.Fatalf("IsScheduleClaimed: %v", err)
	}
	assertEq(t, claimed, true)

	if _, err := repo.LockStageItem(ctx, 999); !errors.Is(err, ErrStageItemNotFound) {
		t.Fatalf("expected ErrStageItemNotFound, got %v", err)
	}
}

func TestBolt_MatchViews(t *testing.T) {
	repo := newTestBolt(t)
	f := seed(t, repo, 3)
	ctx := context.Background()

	rounds := []*models.Round{
		{TournamentID: f.tournament.ID, StageItemID: f.item.ID, Number: 1},
		{TournamentID: f.tournament.ID, StageItemID: f.item.ID, Number: 2},
	}
	if err := repo.InsertRounds(ctx, rounds); err != nil {
		t.Fatalf("InsertRounds: %v", err)
	}

	late := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	early := late.Add(-24 * time.Hour)
	a, b, c := f.teams[0].ID, f.teams[1].ID, f.teams[2].ID
	matches := []*models.Match{
		{TournamentID: f.tournament.ID, RoundID: rounds[1].ID, Participant1ID: intPtr(a), Participant2ID: intPtr(b), StartTime: &early},
		{TournamentID: f.tournament.ID, RoundID: rounds[0].ID, Participant1ID: intPtr(c), Participant2ID: intPtr(a)},
		{TournamentID: f.tournament.ID, RoundID: rounds[0].ID, Participant1ID: intPtr(b), Participant2ID: intPtr(c), StartTime: &late},
		{TournamentID: f.tournament.ID, RoundID: rounds[0].ID, Participant1ID: intPtr(a), Participant2ID: intPtr(b), StartTime: &late},
	}
	if err := repo.InsertMatches(ctx, matches); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}

	byTeam, err := repo.ListMatchesByTeam(ctx, a)
	if err != nil {
		t.Fatalf("ListMatchesByTeam: %v", err)
	}
	assertEq(t, len(byTeam), 3)
	assertEq(t, byTeam[0].ID, matches[0].ID)
	assertEq(t, byTeam[1].ID, matches[3].ID)
	assertEq(t, byTeam[2].ID, matches[1].ID)

	byTournament, err := repo.ListMatchesByTournament(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("ListMatchesByTournament: %v", err)
	}
	assertEq(t, len(byTournament), 4)
	assertEq(t, byTournament[0].ID, matches[1].ID)
	assertEq(t, byTournament[1].ID, matches[2].ID)
	assertEq(t, byTournament[2].ID, matches[3].ID)
	assertEq(t, byTournament[3].ID, matches[0].ID)

	none, err := repo.ListMatchesByTeam(ctx, 999)
	if err != nil {
		t.Fatalf("ListMatchesByTeam: %v", err)
	}
	assertEq(t, len(none), 0)
}
