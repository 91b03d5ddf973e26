package services

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/ranking"
	"github.com/Dosada05/tourney/repositories"
)

type StandingsService interface {
	ListStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error)
	RecomputeStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error)
}

type standingsService struct {
	repo   repositories.EntityRepository
	logger *slog.Logger
}

func NewStandingsService(repo repositories.EntityRepository, logger *slog.Logger) StandingsService {
	return &standingsService{repo: repo, logger: logger}
}

func (s *standingsService) ListStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error) {
	if _, err := s.repo.FindTournament(ctx, tournamentID); err != nil {
		return nil, handleRepositoryError("find tournament", err)
	}
	teams, err := s.repo.ListTeamsByTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError("list teams", err)
	}
	return rankTeams(teams), nil
}

// RecomputeStandings rebuilds every team's stats from the ended matches of the tournament.
// It repairs standings after ErrStatsNotApplied and must not run while results are being
// recorded for the same tournament.
func (s *standingsService) RecomputeStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error) {
	var teams []*models.Team
	err := s.repo.WithinTx(ctx, func(tx repositories.EntityRepository) error {
		tournament, err := tx.FindTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		cfg := tournament.RankingConfig()

		teams, err = tx.ListTeamsByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		matches, err := tx.ListEndedMatchesByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}

		totals := make(map[int]models.TeamStats, len(teams))
		for _, m := range matches {
			if !m.HasParticipants() {
				continue
			}
			d := ranking.ApplyOutcome(ranking.OutcomeFor(m, m.WinnerID, m.Score), cfg)
			totals[*m.Participant1ID] = totals[*m.Participant1ID].Add(d.Side1)
			totals[*m.Participant2ID] = totals[*m.Participant2ID].Add(d.Side2)
		}

		for _, t := range teams {
			t.Stats = totals[t.ID]
			if err := tx.ResetTeamStats(ctx, t.ID, t.Stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, handleRepositoryError("recompute standings", err)
	}

	s.logger.InfoContext(ctx, "Standings recomputed",
		actorAttr(ctx),
		slog.Int("tournament_id", tournamentID),
		slog.Int("teams", len(teams)),
	)
	return rankTeams(teams), nil
}

// rankTeams orders by points, goal difference, goals for, then team id, and assigns
// 1-based ranks.
func rankTeams(teams []*models.Team) []models.TournamentStanding {
	sorted := slices.Clone(teams)
	slices.SortFunc(sorted, func(a, b *models.Team) int {
		if c := cmp.Compare(b.Stats.Points, a.Stats.Points); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Stats.GoalDifference(), a.Stats.GoalDifference()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Stats.GoalsFor, a.Stats.GoalsFor); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	standings := make([]models.TournamentStanding, len(sorted))
	for i, t := range sorted {
		standings[i] = models.TournamentStanding{
			Rank:            i + 1,
			TeamID:          t.ID,
			TeamName:        t.Name,
			Stats:           t.Stats,
			ScoreDifference: t.Stats.GoalDifference(),
		}
	}
	return standings
}
