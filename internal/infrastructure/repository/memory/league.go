package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/statline/oddsync/internal/domain/league"
)

// LeagueRepository is an in-memory league.Repository for tests and
// local runs.
type LeagueRepository struct {
	mu     sync.RWMutex
	byCode map[string]league.League
	lastID int64

	GetByCodeCalls int
}

func NewLeagueRepository(codes ...string) *LeagueRepository {
	r := &LeagueRepository{byCode: make(map[string]league.League, len(codes))}
	for _, code := range codes {
		r.lastID++
		r.byCode[code] = league.League{ID: r.lastID, Code: code}
	}
	return r
}

func (r *LeagueRepository) GetByCode(_ context.Context, code string) (league.League, bool, error) {
	r.mu.Lock()
	r.GetByCodeCalls++
	lg, ok := r.byCode[code]
	r.mu.Unlock()
	return lg, ok, nil
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.byCode))
	for _, lg := range r.byCode {
		out = append(out, lg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
