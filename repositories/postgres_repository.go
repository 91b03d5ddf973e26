package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/tourney/models"
	"github.com/lib/pq"
)

type postgresEntityRepository struct {
	db   *sql.DB
	exec SQLExecutor // *sql.Tx inside WithinTx, nil otherwise
}

func NewPostgresEntityRepository(db *sql.DB) EntityRepository {
	return &postgresEntityRepository{db: db}
}

func (r *postgresEntityRepository) getExecutor() SQLExecutor {
	if r.exec != nil {
		return r.exec
	}
	return r.db
}

func (r *postgresEntityRepository) WithinTx(ctx context.Context, fn func(repo EntityRepository) error) (err error) {
	if r.exec != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(&postgresEntityRepository{db: r.db, exec: tx})
	return err
}

func (r *postgresEntityRepository) FindTournament(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT id, club_id, name, settings, created_at FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	var settings []byte
	err := r.getExecutor().QueryRowContext(ctx, query, id).Scan(&t.ID, &t.ClubID, &t.Name, &settings, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode settings of tournament %d: %w", id, err)
		}
	}
	return t, nil
}

func (r *postgresEntityRepository) FindStage(ctx context.Context, id int) (*models.Stage, error) {
	query := `SELECT id, tournament_id, name, stage_order, type, config FROM stages WHERE id = $1`

	s := &models.Stage{}
	var cfg []byte
	err := r.getExecutor().QueryRowContext(ctx, query, id).Scan(&s.ID, &s.TournamentID, &s.Name, &s.Order, &s.Type, &cfg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &s.Config); err != nil {
			return nil, fmt.Errorf("decode config of stage %d: %w", id, err)
		}
	}
	return s, nil
}

const stageItemQuery = `SELECT id, stage_id, tournament_id, name, inputs FROM stage_items WHERE id = $1`

func (r *postgresEntityRepository) FindStageItem(ctx context.Context, id int) (*models.StageItem, error) {
	return r.findStageItem(ctx, stageItemQuery, id)
}

func (r *postgresEntityRepository) LockStageItem(ctx context.Context, id int) (*models.StageItem, error) {
	return r.findStageItem(ctx, stageItemQuery+` FOR UPDATE`, id)
}

func (r *postgresEntityRepository) findStageItem(ctx context.Context, query string, id int) (*models.StageItem, error) {
	si := &models.StageItem{}
	var inputs []byte
	err := r.getExecutor().QueryRowContext(ctx, query, id).Scan(&si.ID, &si.StageID, &si.TournamentID, &si.Name, &inputs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageItemNotFound
		}
		return nil, err
	}
	si.Inputs = []models.StageInput{}
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &si.Inputs); err != nil {
			return nil, fmt.Errorf("decode inputs of stage item %d: %w", id, err)
		}
	}
	return si, nil
}

func (r *postgresEntityRepository) FindRound(ctx context.Context, id int) (*models.Round, error) {
	query := `SELECT id, tournament_id, stage_id, stage_item_id, name, number FROM rounds WHERE id = $1`

	rd := &models.Round{}
	err := r.getExecutor().QueryRowContext(ctx, query, id).Scan(
		&rd.ID, &rd.TournamentID, &rd.StageID, &rd.StageItemID, &rd.Name, &rd.Number,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return rd, nil
}

const matchColumns = `id, tournament_id, stage_id, stage_item_id, round_id, participant1_id, participant2_id,
	start_time, court, score_side1, score_side2, winner_id, end_time, created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var p1, p2, winner sql.NullInt64
	var start, end sql.NullTime
	var court sql.NullString
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.StageID, &m.StageItemID, &m.RoundID, &p1, &p2,
		&start, &court, &m.Score.Side1, &m.Score.Side2, &winner, &end, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Participant1ID = nullIntPtr(p1)
	m.Participant2ID = nullIntPtr(p2)
	m.WinnerID = nullIntPtr(winner)
	if start.Valid {
		m.StartTime = &start.Time
	}
	if end.Valid {
		m.EndTime = &end.Time
	}
	if court.Valid {
		m.Court = &court.String
	}
	return m, nil
}

func (r *postgresEntityRepository) FindMatch(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.getExecutor().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

const teamColumns = `id, tournament_id, name, matches_played, points, wins, draws, losses,
	goals_for, goals_against, created_at`

func scanTeam(row rowScanner) (*models.Team, error) {
	t := &models.Team{}
	err := row.Scan(
		&t.ID, &t.TournamentID, &t.Name,
		&t.Stats.MatchesPlayed, &t.Stats.Points, &t.Stats.Wins, &t.Stats.Draws, &t.Stats.Losses,
		&t.Stats.GoalsFor, &t.Stats.GoalsAgainst, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresEntityRepository) FindTeam(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	t, err := scanTeam(r.getExecutor().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresEntityRepository) FindTeamsByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}

	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = ANY($1) ORDER BY id ASC`
	return r.queryTeams(ctx, query, pq.Array(ids64))
}

func (r *postgresEntityRepository) ListTeamsByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = $1 ORDER BY id ASC`
	return r.queryTeams(ctx, query, tournamentID)
}

func (r *postgresEntityRepository) queryTeams(ctx context.Context, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.getExecutor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresEntityRepository) CountRoundsByStageItem(ctx context.Context, stageItemID int) (int, error) {
	var n int
	err := r.getExecutor().QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds WHERE stage_item_id = $1`, stageItemID).Scan(&n)
	return n, err
}

func (r *postgresEntityRepository) ListRoundsByStageItem(ctx context.Context, stageItemID int) ([]*models.Round, error) {
	query := `
		SELECT id, tournament_id, stage_id, stage_item_id, name, number
		FROM rounds
		WHERE stage_item_id = $1
		ORDER BY number ASC`

	rows, err := r.getExecutor().QueryContext(ctx, query, stageItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		rd := &models.Round{}
		if err := rows.Scan(&rd.ID, &rd.TournamentID, &rd.StageID, &rd.StageItemID, &rd.Name, &rd.Number); err != nil {
			return nil, err
		}
		rounds = append(rounds, rd)
	}
	return rounds, rows.Err()
}

func (r *postgresEntityRepository) ListMatchesByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE round_id = $1 ORDER BY id ASC`
	return r.queryMatches(ctx, query, roundID)
}

func (r *postgresEntityRepository) ListEndedMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND end_time IS NOT NULL ORDER BY id ASC`
	return r.queryMatches(ctx, query, tournamentID)
}

func (r *postgresEntityRepository) ListMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round_id ASC, id ASC`
	return r.queryMatches(ctx, query, tournamentID)
}

func (r *postgresEntityRepository) ListMatchesByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE participant1_id = $1 OR participant2_id = $1
		ORDER BY start_time ASC NULLS LAST, id ASC`
	return r.queryMatches(ctx, query, teamID)
}

func (r *postgresEntityRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.getExecutor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresEntityRepository) UpdateStageItemName(ctx context.Context, stageItemID int, name string) error {
	result, err := r.getExecutor().ExecContext(ctx, `UPDATE stage_items SET name = $1 WHERE id = $2`, name, stageItemID)
	if err != nil {
		return handleEntityError(err)
	}
	return checkAffectedRows(result, ErrStageItemNotFound)
}

func (r *postgresEntityRepository) UpdateStageItemInputs(ctx context.Context, stageItemID int, inputs []models.StageInput) error {
	if err := validateInputs(inputs); err != nil {
		return err
	}
	if inputs == nil {
		inputs = []models.StageInput{}
	}
	raw, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("encode stage inputs: %w", err)
	}

	result, err := r.getExecutor().ExecContext(ctx, `UPDATE stage_items SET inputs = $1 WHERE id = $2`, string(raw), stageItemID)
	if err != nil {
		return handleEntityError(err)
	}
	return checkAffectedRows(result, ErrStageItemNotFound)
}

func (r *postgresEntityRepository) ClaimSchedule(ctx context.Context, stageItemID int) error {
	query := `
		INSERT INTO schedule_claims (stage_item_id)
		VALUES ($1)
		ON CONFLICT (stage_item_id) DO NOTHING`

	result, err := r.getExecutor().ExecContext(ctx, query, stageItemID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrStageItemNotFound
		}
		return handleEntityError(err)
	}
	return checkAffectedRows(result, ErrScheduleAlreadyClaimed)
}

func (r *postgresEntityRepository) IsScheduleClaimed(ctx context.Context, stageItemID int) (bool, error) {
	var claimed bool
	query := `SELECT EXISTS (SELECT 1 FROM schedule_claims WHERE stage_item_id = $1)`
	if err := r.getExecutor().QueryRowContext(ctx, query, stageItemID).Scan(&claimed); err != nil {
		return false, err
	}
	return claimed, nil
}

func (r *postgresEntityRepository) InsertRounds(ctx context.Context, rounds []*models.Round) error {
	query := `
		INSERT INTO rounds (tournament_id, stage_id, stage_item_id, name, number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	executor := r.getExecutor()
	for _, rd := range rounds {
		err := executor.QueryRowContext(ctx, query,
			rd.TournamentID, rd.StageID, rd.StageItemID, rd.Name, rd.Number,
		).Scan(&rd.ID)
		if err != nil {
			return fmt.Errorf("insert round %d: %w", rd.Number, handleEntityError(err))
		}
	}
	return nil
}

func (r *postgresEntityRepository) InsertMatches(ctx context.Context, matches []*models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, stage_id, stage_item_id, round_id, participant1_id, participant2_id,
			 start_time, court, score_side1, score_side2, winner_id, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	executor := r.getExecutor()
	for _, m := range matches {
		err := executor.QueryRowContext(ctx, query,
			m.TournamentID, m.StageID, m.StageItemID, m.RoundID, m.Participant1ID, m.Participant2ID,
			m.StartTime, m.Court, m.Score.Side1, m.Score.Side2, m.WinnerID, m.EndTime,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert match in round %d: %w", m.RoundID, handleEntityError(err))
		}
	}
	return nil
}

func (r *postgresEntityRepository) UpdateMatchConditional(ctx context.Context, matchID int, pred models.MatchPredicate, patch models.MatchPatch) (int64, error) {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}
	argID := 2

	if patch.Score != nil {
		sets = append(sets, fmt.Sprintf("score_side1 = $%d", argID), fmt.Sprintf("score_side2 = $%d", argID+1))
		args = append(args, patch.Score.Side1, patch.Score.Side2)
		argID += 2
	}
	if patch.SetWinner {
		sets = append(sets, fmt.Sprintf("winner_id = $%d", argID))
		args = append(args, patch.WinnerID)
		argID++
	}
	if patch.EndTime != nil {
		sets = append(sets, fmt.Sprintf("end_time = $%d", argID))
		args = append(args, *patch.EndTime)
		argID++
	}

	query := fmt.Sprintf("UPDATE matches SET %s WHERE id = $%d", strings.Join(sets, ", "), argID)
	args = append(args, matchID)
	if pred.Unended {
		query += " AND end_time IS NULL"
	}

	result, err := r.getExecutor().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, handleEntityError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}

func (r *postgresEntityRepository) IncrementTeamStats(ctx context.Context, teamID int, delta models.TeamStats) error {
	query := `
		UPDATE teams SET
			matches_played = matches_played + $1,
			points = points + $2,
			wins = wins + $3,
			draws = draws + $4,
			losses = losses + $5,
			goals_for = goals_for + $6,
			goals_against = goals_against + $7
		WHERE id = $8`

	result, err := r.getExecutor().ExecContext(ctx, query,
		delta.MatchesPlayed, delta.Points, delta.Wins, delta.Draws, delta.Losses,
		delta.GoalsFor, delta.GoalsAgainst, teamID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresEntityRepository) ResetTeamStats(ctx context.Context, teamID int, stats models.TeamStats) error {
	query := `
		UPDATE teams SET
			matches_played = $1, points = $2, wins = $3, draws = $4, losses = $5,
			goals_for = $6, goals_against = $7
		WHERE id = $8`

	result, err := r.getExecutor().ExecContext(ctx, query,
		stats.MatchesPlayed, stats.Points, stats.Wins, stats.Draws, stats.Losses,
		stats.GoalsFor, stats.GoalsAgainst, teamID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func handleEntityError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "rounds_stage_item_id_number_key":
				return ErrRoundNumberConflict
			case "schedule_claims_pkey":
				return ErrScheduleAlreadyClaimed
			}
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pqErr.Constraint)
		case "23514":
			if pqErr.Constraint == "stages_type_check" {
				return ErrInvalidStageType
			}
		}
	}
	return err
}
