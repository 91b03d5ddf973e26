package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/ranking"
	"github.com/Dosada05/tourney/repositories"
	"golang.org/x/sync/errgroup"
)

type EndMatchInput struct {
	WinnerID *int         `json:"winner_id"` // nil records a draw
	Score    models.Score `json:"score"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	EndMatch(ctx context.Context, matchID int, input EndMatchInput) (*models.Match, error)
	UpdateScore(ctx context.Context, matchID int, score models.Score) (*models.Match, error)
	ListTeamMatches(ctx context.Context, teamID int) ([]*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type matchService struct {
	repo   repositories.EntityRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewMatchService(repo repositories.EntityRepository, logger *slog.Logger) MatchService {
	return &matchService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.repo.FindMatch(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError("find match", err)
	}
	return match, nil
}

// EndMatch moves a scheduled match to ended and applies the result to both teams.
// The match update is conditioned on the match still being unended, so of several
// concurrent calls exactly one applies stats and the others get ErrMatchAlreadyEnded.
func (s *matchService) EndMatch(ctx context.Context, matchID int, input EndMatchInput) (*models.Match, error) {
	if !input.Score.Valid() {
		return nil, ErrInvalidScore
	}

	match, err := s.repo.FindMatch(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError("find match", err)
	}
	if match.IsEnded() {
		return nil, ErrMatchAlreadyEnded
	}
	if !match.HasParticipants() {
		return nil, ErrMatchParticipantsMissing
	}
	if input.WinnerID != nil && !match.IsParticipant(*input.WinnerID) {
		return nil, fmt.Errorf("%w: team %d", ErrWinnerNotParticipant, *input.WinnerID)
	}

	tournament, err := s.repo.FindTournament(ctx, match.TournamentID)
	if err != nil {
		return nil, handleRepositoryError("find tournament", err)
	}
	cfg := tournament.RankingConfig()

	endTime := s.now().UTC()
	score := input.Score
	affected, err := s.repo.UpdateMatchConditional(ctx, matchID,
		models.MatchPredicate{Unended: true},
		models.MatchPatch{Score: &score, SetWinner: true, WinnerID: input.WinnerID, EndTime: &endTime},
	)
	if err != nil {
		return nil, handleRepositoryError("end match", err)
	}
	if affected == 0 {
		s.logger.WarnContext(ctx, "Match was ended concurrently", actorAttr(ctx), slog.Int("match_id", matchID))
		return nil, ErrMatchAlreadyEnded
	}

	match.Score = score
	match.WinnerID = input.WinnerID
	match.EndTime = &endTime
	match.UpdatedAt = endTime

	deltas := ranking.ApplyOutcome(ranking.OutcomeFor(match, input.WinnerID, score), cfg)

	// The match is already ended; finish applying stats even if the caller goes away.
	statsCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		return s.repo.IncrementTeamStats(statsCtx, *match.Participant1ID, deltas.Side1)
	})
	g.Go(func() error {
		return s.repo.IncrementTeamStats(statsCtx, *match.Participant2ID, deltas.Side2)
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to apply team stats for ended match",
			actorAttr(ctx),
			slog.Int("match_id", matchID),
			slog.Int("tournament_id", match.TournamentID),
			slog.Any("error", err),
		)
		return match, fmt.Errorf("%w: match %d: %w", ErrStatsNotApplied, matchID, err)
	}

	s.logger.InfoContext(ctx, "Match ended",
		actorAttr(ctx),
		slog.Int("match_id", matchID),
		slog.Any("winner_id", input.WinnerID),
		slog.Int("score_side1", score.Side1),
		slog.Int("score_side2", score.Side2),
	)
	return match, nil
}

// UpdateScore records the running score of a match that has not ended. Stats are untouched.
func (s *matchService) UpdateScore(ctx context.Context, matchID int, score models.Score) (*models.Match, error) {
	if !score.Valid() {
		return nil, ErrInvalidScore
	}

	match, err := s.repo.FindMatch(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError("find match", err)
	}
	if match.IsEnded() {
		return nil, ErrMatchAlreadyEnded
	}

	affected, err := s.repo.UpdateMatchConditional(ctx, matchID,
		models.MatchPredicate{Unended: true},
		models.MatchPatch{Score: &score},
	)
	if err != nil {
		return nil, handleRepositoryError("update score", err)
	}
	if affected == 0 {
		return nil, ErrMatchAlreadyEnded
	}

	match.Score = score
	match.UpdatedAt = s.now().UTC()
	s.logger.DebugContext(ctx, "Match score updated", actorAttr(ctx), slog.Int("match_id", matchID))
	return match, nil
}

// ListTeamMatches returns the matches a team plays in, earliest start first; matches
// without a start time come last.
func (s *matchService) ListTeamMatches(ctx context.Context, teamID int) ([]*models.Match, error) {
	if _, err := s.repo.FindTeam(ctx, teamID); err != nil {
		return nil, handleRepositoryError("find team", err)
	}
	matches, err := s.repo.ListMatchesByTeam(ctx, teamID)
	if err != nil {
		return nil, handleRepositoryError("list team matches", err)
	}
	return matches, nil
}

func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.repo.FindTournament(ctx, tournamentID); err != nil {
		return nil, handleRepositoryError("find tournament", err)
	}
	matches, err := s.repo.ListMatchesByTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError("list tournament matches", err)
	}
	return matches, nil
}
