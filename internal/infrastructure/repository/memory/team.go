package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/statline/oddsync/internal/domain/team"
)

// TeamRepository is an in-memory team.Repository for tests and local
// runs. Lookup semantics mirror the postgres implementation:
// case-insensitive exact match on name, falling back to abbreviation.
type TeamRepository struct {
	mu     sync.RWMutex
	teams  map[int64]team.Team
	lastID int64

	FindByIdentityCalls int
	UpsertCalls         int
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{teams: make(map[int64]team.Team)}
}

// Seed inserts a team directly, bypassing identity resolution.
func (r *TeamRepository) Seed(leagueID int64, name, abbreviation string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	r.teams[r.lastID] = team.Team{
		ID:           r.lastID,
		LeagueID:     leagueID,
		Name:         name,
		Abbreviation: abbreviation,
	}
	return r.lastID
}

func (r *TeamRepository) FindByIdentity(_ context.Context, leagueID int64, identity team.Identity) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FindByIdentityCalls++
	if id, ok := r.findByNameLocked(leagueID, identity.Name); ok {
		return id, true, nil
	}
	if identity.Abbreviation != "" {
		for id, t := range r.teams {
			if t.LeagueID == leagueID && strings.EqualFold(t.Abbreviation, identity.Abbreviation) {
				return id, true, nil
			}
		}
	}
	return 0, false, nil
}

func (r *TeamRepository) GetByID(_ context.Context, id int64) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[id]
	return t, ok, nil
}

func (r *TeamRepository) NamesByIDs(_ context.Context, ids []int64) (map[int64]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if t, ok := r.teams[id]; ok {
			out[id] = t.Name
		}
	}
	return out, nil
}

func (r *TeamRepository) Upsert(_ context.Context, leagueID int64, identity team.Identity) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpsertCalls++
	if id, ok := r.findByNameLocked(leagueID, identity.Name); ok {
		return id, nil
	}

	r.lastID++
	r.teams[r.lastID] = team.Team{
		ID:           r.lastID,
		LeagueID:     leagueID,
		Name:         identity.Name,
		Abbreviation: identity.Abbreviation,
	}
	return r.lastID, nil
}

func (r *TeamRepository) findByNameLocked(leagueID int64, name string) (int64, bool) {
	for id, t := range r.teams {
		if t.LeagueID == leagueID && strings.EqualFold(t.Name, name) {
			return id, true
		}
	}
	return 0, false
}
