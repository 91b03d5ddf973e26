package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordLogger returns a logger whose JSON records can be read back with logRecords.
func recordLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// logRecord returns the first record with the given message.
func logRecord(t *testing.T, buf *bytes.Buffer, msg string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	for dec.More() {
		rec := map[string]any{}
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		if rec["msg"] == msg {
			return rec
		}
	}
	t.Fatalf("no %q record in log:\n%s", msg, buf.String())
	return nil
}

func newTestRepo(t *testing.T) *repositories.BoltRepository {
	t.Helper()
	repo, err := repositories.NewBoltRepository(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("NewBoltRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

type world struct {
	repo       *repositories.BoltRepository
	tournament *models.Tournament
	stage      *models.Stage
	item       *models.StageItem
	teams      []*models.Team
}

type worldOpts struct {
	teams     int
	stageType models.StageType
	cycles    int
	ranking   *models.RankingSettings
	noInputs  bool
}

func newWorld(t *testing.T, opts worldOpts) *world {
	t.Helper()
	ctx := context.Background()
	if opts.stageType == "" {
		opts.stageType = models.StageTypeLeague
	}

	w := &world{repo: newTestRepo(t)}
	w.tournament = &models.Tournament{ClubID: 1, Name: "Summer League", Settings: models.TournamentSettings{RankingConfig: opts.ranking}}
	if err := w.repo.CreateTournament(ctx, w.tournament); err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	w.stage = &models.Stage{
		TournamentID: w.tournament.ID,
		Name:         "Main",
		Order:        1,
		Type:         opts.stageType,
		Config:       models.StageConfig{TeamsCount: opts.teams, Rounds: opts.cycles},
	}
	if err := w.repo.CreateStage(ctx, w.stage); err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	w.item = &models.StageItem{StageID: w.stage.ID, TournamentID: w.tournament.ID, Name: "Group A"}
	for i := 0; i < opts.teams; i++ {
		team := &models.Team{TournamentID: w.tournament.ID, Name: "Team"}
		if err := w.repo.CreateTeam(ctx, team); err != nil {
			t.Fatalf("CreateTeam: %v", err)
		}
		w.teams = append(w.teams, team)
		if !opts.noInputs {
			w.item.Inputs = append(w.item.Inputs, models.DirectInput(team.ID))
		}
	}
	if err := w.repo.CreateStageItem(ctx, w.item); err != nil {
		t.Fatalf("CreateStageItem: %v", err)
	}
	return w
}

// scheduledMatch generates the schedule and returns the first match of round 1.
func (w *world) scheduledMatch(t *testing.T) *models.Match {
	t.Helper()
	ctx := context.Background()
	svc := NewScheduleService(w.repo, discardLogger())
	if _, err := svc.GenerateSchedule(ctx, w.item.ID); err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	rounds, err := svc.ListRounds(ctx, w.item.ID)
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	matches, err := svc.ListRoundMatches(ctx, rounds[0].ID)
	if err != nil {
		t.Fatalf("ListRoundMatches: %v", err)
	}
	return matches[0]
}

func (w *world) team(t *testing.T, id int) *models.Team {
	t.Helper()
	team, err := w.repo.FindTeam(context.Background(), id)
	if err != nil {
		t.Fatalf("FindTeam: %v", err)
	}
	return team
}

func intPtr(v int) *int { return &v }

func assertEq[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func assertErrIs(t *testing.T, err error, targets ...error) {
	t.Helper()
	for _, target := range targets {
		if !errors.Is(err, target) {
			t.Fatalf("expected error matching %v, got %v", target, err)
		}
	}
}
