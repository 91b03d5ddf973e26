package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Dosada05/tourney/models"
	"go.etcd.io/bbolt"
)

var ErrInvalidSeed = errors.New("invalid seed file")

// BoltSeed is the reference data a bolt store is filled with on first start.
// Stage items name their teams; each name becomes a direct input in the listed order.
type BoltSeed struct {
	Tournaments []SeedTournament `json:"tournaments"`
}

type SeedTournament struct {
	ClubID   int                       `json:"club_id"`
	Name     string                    `json:"name"`
	Settings models.TournamentSettings `json:"settings"`
	Teams    []string                  `json:"teams"`
	Stages   []SeedStage               `json:"stages"`
}

type SeedStage struct {
	Name   string             `json:"name"`
	Order  int                `json:"order"`
	Type   models.StageType   `json:"type"`
	Config models.StageConfig `json:"config"`
	Items  []SeedStageItem    `json:"items"`
}

type SeedStageItem struct {
	Name  string   `json:"name"`
	Teams []string `json:"teams"`
}

func LoadBoltSeed(path string) (*BoltSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	seed := &BoltSeed{}
	if err := json.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, path, err)
	}
	return seed, nil
}

// ApplySeed writes the seed in a single transaction when the store holds no tournaments
// yet. It reports whether anything was written.
func (r *BoltRepository) ApplySeed(ctx context.Context, seed *BoltSeed) (bool, error) {
	applied := false
	err := r.WithinTx(ctx, func(repo EntityRepository) error {
		txRepo := repo.(*BoltRepository)
		if seeded(txRepo.tx) {
			return nil
		}
		for _, st := range seed.Tournaments {
			if err := txRepo.seedTournament(ctx, st); err != nil {
				return err
			}
		}
		applied = len(seed.Tournaments) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *BoltRepository) seedTournament(ctx context.Context, st SeedTournament) error {
	t := &models.Tournament{ClubID: st.ClubID, Name: st.Name, Settings: st.Settings}
	if err := r.CreateTournament(ctx, t); err != nil {
		return err
	}

	teamIDs := make(map[string]int, len(st.Teams))
	for _, name := range st.Teams {
		if _, dup := teamIDs[name]; dup {
			return fmt.Errorf("%w: tournament %q lists team %q twice", ErrInvalidSeed, st.Name, name)
		}
		team := &models.Team{TournamentID: t.ID, Name: name}
		if err := r.CreateTeam(ctx, team); err != nil {
			return err
		}
		teamIDs[name] = team.ID
	}

	for _, ss := range st.Stages {
		stage := &models.Stage{TournamentID: t.ID, Name: ss.Name, Order: ss.Order, Type: ss.Type, Config: ss.Config}
		if err := r.CreateStage(ctx, stage); err != nil {
			return fmt.Errorf("stage %q: %w", ss.Name, err)
		}
		for _, si := range ss.Items {
			item := &models.StageItem{StageID: stage.ID, TournamentID: t.ID, Name: si.Name}
			placed := make(map[string]bool, len(si.Teams))
			for _, name := range si.Teams {
				id, ok := teamIDs[name]
				if !ok {
					return fmt.Errorf("%w: stage item %q references unknown team %q", ErrInvalidSeed, si.Name, name)
				}
				if placed[name] {
					return fmt.Errorf("%w: stage item %q lists team %q twice", ErrInvalidSeed, si.Name, name)
				}
				placed[name] = true
				item.Inputs = append(item.Inputs, models.DirectInput(id))
			}
			if err := r.CreateStageItem(ctx, item); err != nil {
				return fmt.Errorf("stage item %q: %w", si.Name, err)
			}
		}
	}
	return nil
}

// seeded reports whether the tournaments bucket holds anything.
func seeded(tx *bbolt.Tx) bool {
	k, _ := tx.Bucket([]byte(tournamentsBucket)).Cursor().First()
	return k != nil
}
