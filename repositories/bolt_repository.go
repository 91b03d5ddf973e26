package repositories

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Dosada05/tourney/models"
	"go.etcd.io/bbolt"
)

const (
	tournamentsBucket    = "tournaments"
	stagesBucket         = "stages"
	stageItemsBucket     = "stage_items"
	roundsBucket         = "rounds"
	matchesBucket        = "matches"
	teamsBucket          = "teams"
	scheduleClaimsBucket = "schedule_claims"
)

var allBuckets = []string{
	tournamentsBucket, stagesBucket, stageItemsBucket, roundsBucket,
	matchesBucket, teamsBucket, scheduleClaimsBucket,
}

// BoltRepository stores every entity as JSON in its own bucket, keyed by a big-endian
// bucket sequence. bbolt allows a single writer at a time, so read-modify-write inside
// one Update is atomic.
type BoltRepository struct {
	db *bbolt.DB
	tx *bbolt.Tx // set inside WithinTx
}

func NewBoltRepository(dbPath string) (*BoltRepository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *BoltRepository) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.db.View(fn)
}

func (r *BoltRepository) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.db.Update(fn)
}

func (r *BoltRepository) WithinTx(ctx context.Context, fn func(repo EntityRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return fn(&BoltRepository{db: r.db, tx: tx})
	})
}

func itob(id int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func getJSON(tx *bbolt.Tx, bucket string, id int, v interface{}, notFound error) error {
	data := tx.Bucket([]byte(bucket)).Get(itob(id))
	if data == nil {
		return notFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%d: %w", bucket, id, err)
	}
	return nil
}

func putJSON(tx *bbolt.Tx, bucket string, id int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%d: %w", bucket, id, err)
	}
	return tx.Bucket([]byte(bucket)).Put(itob(id), data)
}

func nextID(tx *bbolt.Tx, bucket string) (int, error) {
	seq, err := tx.Bucket([]byte(bucket)).NextSequence()
	if err != nil {
		return 0, err
	}
	return int(seq), nil
}

func exists(tx *bbolt.Tx, bucket string, id int) bool {
	return tx.Bucket([]byte(bucket)).Get(itob(id)) != nil
}

// forEachJSON decodes every value of bucket into a fresh T and passes it to fn.
func forEachJSON[T any](tx *bbolt.Tx, bucket string, fn func(v *T)) error {
	return tx.Bucket([]byte(bucket)).ForEach(func(k, data []byte) error {
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s/%d: %w", bucket, binary.BigEndian.Uint64(k), err)
		}
		fn(v)
		return nil
	})
}

func (r *BoltRepository) FindTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return getJSON(tx, tournamentsBucket, id, t, ErrTournamentNotFound)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *BoltRepository) FindStage(ctx context.Context, id int) (*models.Stage, error) {
	s := &models.Stage{}
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return getJSON(tx, stagesBucket, id, s, ErrStageNotFound)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *BoltRepository) FindStageItem(ctx context.Context, id int) (*models.StageItem, error) {
	si := &models.StageItem{}
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return getJSON(tx, stageItemsBucket, id, si, ErrStageItemNotFound)
	})
	if err != nil {
		return nil, err
	}
	if si.Inputs == nil {
		si.Inputs = []models.StageInput{}
	}
	return si, nil
}

// LockStageItem is FindStageItem: a bolt write transaction already excludes every other writer.
func (r *BoltRepository) LockStageItem(ctx context.Context, id int) (*models.StageItem, error) {
	return r.FindStageItem(ctx, id)
}

func (r *BoltRepository) FindRound(ctx context.Context, id int) (*models.Round, error) {
	rd := &models.Round{}
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return getJSON(tx, roundsBucket, id, rd, ErrRoundNotFound)
	})
	if err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *BoltRepository) FindMatch(ctx context.Context, id int) (*models.Match, error) {
	m := &models.Match{}
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return getJSON(tx, matchesBucket, id, m, ErrMatchNotFound)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *BoltRepository) FindTeam(ctx context.Context, id int) (*models.Team, error) {
	t := &models.Team{}
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return getJSON(tx, teamsBucket, id, t, ErrTeamNotFound)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *BoltRepository) FindTeamsByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	teams := make([]*models.Team, 0, len(ids))
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		seen := make(map[int]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			t := &models.Team{}
			err := getJSON(tx, teamsBucket, id, t, ErrTeamNotFound)
			if err == ErrTeamNotFound {
				continue
			}
			if err != nil {
				return err
			}
			teams = append(teams, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (r *BoltRepository) ListTeamsByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	teams := make([]*models.Team, 0)
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return forEachJSON(tx, teamsBucket, func(t *models.Team) {
			if t.TournamentID == tournamentID {
				teams = append(teams, t)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *BoltRepository) CountRoundsByStageItem(ctx context.Context, stageItemID int) (int, error) {
	rounds, err := r.ListRoundsByStageItem(ctx, stageItemID)
	if err != nil {
		return 0, err
	}
	return len(rounds), nil
}

func (r *BoltRepository) ListRoundsByStageItem(ctx context.Context, stageItemID int) ([]*models.Round, error) {
	rounds := make([]*models.Round, 0)
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return forEachJSON(tx, roundsBucket, func(rd *models.Round) {
			if rd.StageItemID == stageItemID {
				rounds = append(rounds, rd)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })
	return rounds, nil
}

func (r *BoltRepository) ListMatchesByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return forEachJSON(tx, matchesBucket, func(m *models.Match) {
			if m.RoundID == roundID {
				matches = append(matches, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *BoltRepository) ListEndedMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return forEachJSON(tx, matchesBucket, func(m *models.Match) {
			if m.TournamentID == tournamentID && m.IsEnded() {
				matches = append(matches, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *BoltRepository) ListMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return forEachJSON(tx, matchesBucket, func(m *models.Match) {
			if m.TournamentID == tournamentID {
				matches = append(matches, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].RoundID < matches[j].RoundID })
	return matches, nil
}

func (r *BoltRepository) ListMatchesByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		return forEachJSON(tx, matchesBucket, func(m *models.Match) {
			if m.IsParticipant(teamID) {
				matches = append(matches, m)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].StartTime, matches[j].StartTime
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		default:
			return a.Before(*b)
		}
	})
	return matches, nil
}

func (r *BoltRepository) UpdateStageItemName(ctx context.Context, stageItemID int, name string) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		si := &models.StageItem{}
		if err := getJSON(tx, stageItemsBucket, stageItemID, si, ErrStageItemNotFound); err != nil {
			return err
		}
		si.Name = name
		return putJSON(tx, stageItemsBucket, si.ID, si)
	})
}

func (r *BoltRepository) UpdateStageItemInputs(ctx context.Context, stageItemID int, inputs []models.StageInput) error {
	if err := validateInputs(inputs); err != nil {
		return err
	}
	if inputs == nil {
		inputs = []models.StageInput{}
	}
	return r.update(ctx, func(tx *bbolt.Tx) error {
		si := &models.StageItem{}
		if err := getJSON(tx, stageItemsBucket, stageItemID, si, ErrStageItemNotFound); err != nil {
			return err
		}
		si.Inputs = inputs
		return putJSON(tx, stageItemsBucket, si.ID, si)
	})
}

func (r *BoltRepository) ClaimSchedule(ctx context.Context, stageItemID int) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		if !exists(tx, stageItemsBucket, stageItemID) {
			return ErrStageItemNotFound
		}
		if exists(tx, scheduleClaimsBucket, stageItemID) {
			return ErrScheduleAlreadyClaimed
		}
		claimedAt, err := time.Now().UTC().MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(scheduleClaimsBucket)).Put(itob(stageItemID), claimedAt)
	})
}

func (r *BoltRepository) IsScheduleClaimed(ctx context.Context, stageItemID int) (bool, error) {
	var claimed bool
	err := r.view(ctx, func(tx *bbolt.Tx) error {
		claimed = exists(tx, scheduleClaimsBucket, stageItemID)
		return nil
	})
	return claimed, err
}

func (r *BoltRepository) InsertRounds(ctx context.Context, rounds []*models.Round) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		taken := make(map[[2]int]bool)
		err := forEachJSON(tx, roundsBucket, func(rd *models.Round) {
			taken[[2]int{rd.StageItemID, rd.Number}] = true
		})
		if err != nil {
			return err
		}

		for _, rd := range rounds {
			if !exists(tx, stageItemsBucket, rd.StageItemID) {
				return fmt.Errorf("%w: stage item %d", ErrInvalidReference, rd.StageItemID)
			}
			key := [2]int{rd.StageItemID, rd.Number}
			if taken[key] {
				return ErrRoundNumberConflict
			}
			taken[key] = true

			id, err := nextID(tx, roundsBucket)
			if err != nil {
				return err
			}
			rd.ID = id
			if err := putJSON(tx, roundsBucket, rd.ID, rd); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BoltRepository) InsertMatches(ctx context.Context, matches []*models.Match) error {
	now := time.Now().UTC()
	return r.update(ctx, func(tx *bbolt.Tx) error {
		for _, m := range matches {
			if !exists(tx, roundsBucket, m.RoundID) {
				return fmt.Errorf("%w: round %d", ErrInvalidReference, m.RoundID)
			}
			for _, teamID := range []*int{m.Participant1ID, m.Participant2ID, m.WinnerID} {
				if teamID != nil && !exists(tx, teamsBucket, *teamID) {
					return fmt.Errorf("%w: team %d", ErrInvalidReference, *teamID)
				}
			}

			id, err := nextID(tx, matchesBucket)
			if err != nil {
				return err
			}
			m.ID = id
			m.CreatedAt, m.UpdatedAt = now, now
			if err := putJSON(tx, matchesBucket, m.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BoltRepository) UpdateMatchConditional(ctx context.Context, matchID int, pred models.MatchPredicate, patch models.MatchPatch) (int64, error) {
	var affected int64
	err := r.update(ctx, func(tx *bbolt.Tx) error {
		m := &models.Match{}
		err := getJSON(tx, matchesBucket, matchID, m, ErrMatchNotFound)
		if err == ErrMatchNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if pred.Unended && m.IsEnded() {
			return nil
		}

		if patch.Score != nil {
			m.Score = *patch.Score
		}
		if patch.SetWinner {
			m.WinnerID = patch.WinnerID
		}
		if patch.EndTime != nil {
			end := *patch.EndTime
			m.EndTime = &end
		}
		m.UpdatedAt = time.Now().UTC()

		if err := putJSON(tx, matchesBucket, m.ID, m); err != nil {
			return err
		}
		affected = 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *BoltRepository) IncrementTeamStats(ctx context.Context, teamID int, delta models.TeamStats) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		t := &models.Team{}
		if err := getJSON(tx, teamsBucket, teamID, t, ErrTeamNotFound); err != nil {
			return err
		}
		t.Stats = t.Stats.Add(delta)
		return putJSON(tx, teamsBucket, t.ID, t)
	})
}

func (r *BoltRepository) ResetTeamStats(ctx context.Context, teamID int, stats models.TeamStats) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		t := &models.Team{}
		if err := getJSON(tx, teamsBucket, teamID, t, ErrTeamNotFound); err != nil {
			return err
		}
		t.Stats = stats
		return putJSON(tx, teamsBucket, t.ID, t)
	})
}

// CreateTournament, CreateStage, CreateStageItem and CreateTeam load reference data
// that the engine itself only reads.

func (r *BoltRepository) CreateTournament(ctx context.Context, t *models.Tournament) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		id, err := nextID(tx, tournamentsBucket)
		if err != nil {
			return err
		}
		t.ID = id
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		return putJSON(tx, tournamentsBucket, t.ID, t)
	})
}

func (r *BoltRepository) CreateStage(ctx context.Context, s *models.Stage) error {
	if err := validateStageType(s.Type); err != nil {
		return err
	}
	return r.update(ctx, func(tx *bbolt.Tx) error {
		if !exists(tx, tournamentsBucket, s.TournamentID) {
			return fmt.Errorf("%w: tournament %d", ErrInvalidReference, s.TournamentID)
		}
		id, err := nextID(tx, stagesBucket)
		if err != nil {
			return err
		}
		s.ID = id
		return putJSON(tx, stagesBucket, s.ID, s)
	})
}

func (r *BoltRepository) CreateStageItem(ctx context.Context, si *models.StageItem) error {
	if err := validateInputs(si.Inputs); err != nil {
		return err
	}
	return r.update(ctx, func(tx *bbolt.Tx) error {
		if !exists(tx, stagesBucket, si.StageID) {
			return fmt.Errorf("%w: stage %d", ErrInvalidReference, si.StageID)
		}
		id, err := nextID(tx, stageItemsBucket)
		if err != nil {
			return err
		}
		si.ID = id
		if si.Inputs == nil {
			si.Inputs = []models.StageInput{}
		}
		return putJSON(tx, stageItemsBucket, si.ID, si)
	})
}

func (r *BoltRepository) CreateTeam(ctx context.Context, t *models.Team) error {
	return r.update(ctx, func(tx *bbolt.Tx) error {
		if !exists(tx, tournamentsBucket, t.TournamentID) {
			return fmt.Errorf("%w: tournament %d", ErrInvalidReference, t.TournamentID)
		}
		id, err := nextID(tx, teamsBucket)
		if err != nil {
			return err
		}
		t.ID = id
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		return putJSON(tx, teamsBucket, t.ID, t)
	})
}
