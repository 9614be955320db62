package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/statline/oddsync/internal/domain/game"
)

type gameIdentity struct {
	leagueID   int64
	season     int
	seasonType string
	gameDate   int64 // unix nanos, UTC
	homeTeamID int64
	awayTeamID int64
}

// GameRepository is an in-memory game.Repository for tests and local
// runs. Upsert semantics mirror the postgres implementation: keyed on
// the natural identity, scrape version bumps on every write and the
// source game key is write-once.
type GameRepository struct {
	mu              sync.RWMutex
	games           map[int64]*game.Game
	byIdentity      map[gameIdentity]int64
	teamBoxscores   map[int64][]game.TeamBoxscoreRow
	playerBoxscores map[int64][]game.PlayerBoxscoreRow
	lastID          int64

	UpsertCalls         int
	FindByTeamPairCalls int
	ListByWindowCalls   int
}

func NewGameRepository() *GameRepository {
	return &GameRepository{
		games:           make(map[int64]*game.Game),
		byIdentity:      make(map[gameIdentity]int64),
		teamBoxscores:   make(map[int64][]game.TeamBoxscoreRow),
		playerBoxscores: make(map[int64][]game.PlayerBoxscoreRow),
	}
}

func (r *GameRepository) Upsert(_ context.Context, params game.UpsertParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpsertCalls++
	now := time.Now().UTC()
	identity := gameIdentity{
		leagueID:   params.LeagueID,
		season:     params.Season,
		seasonType: params.SeasonType,
		gameDate:   params.GameDate.UTC().UnixNano(),
		homeTeamID: params.HomeTeamID,
		awayTeamID: params.AwayTeamID,
	}

	if id, ok := r.byIdentity[identity]; ok {
		existing := r.games[id]
		existing.HomeScore = params.HomeScore
		existing.AwayScore = params.AwayScore
		existing.Status = params.Status
		existing.Venue = params.Venue
		existing.ExternalIDs = params.ExternalIDs
		existing.ScrapeVersion++
		existing.LastScrapedAt = now
		existing.UpdatedAt = now
		if existing.SourceGameKey == nil && params.SourceGameKey != "" {
			key := params.SourceGameKey
			existing.SourceGameKey = &key
		}
		return id, nil
	}

	r.lastID++
	row := &game.Game{
		ID:            r.lastID,
		LeagueID:      params.LeagueID,
		Season:        params.Season,
		SeasonType:    params.SeasonType,
		GameDate:      params.GameDate.UTC(),
		HomeTeamID:    params.HomeTeamID,
		AwayTeamID:    params.AwayTeamID,
		HomeScore:     params.HomeScore,
		AwayScore:     params.AwayScore,
		Status:        params.Status,
		Venue:         params.Venue,
		ScrapeVersion: 1,
		LastScrapedAt: now,
		UpdatedAt:     now,
		ExternalIDs:   params.ExternalIDs,
	}
	if params.SourceGameKey != "" {
		key := params.SourceGameKey
		row.SourceGameKey = &key
	}
	r.games[row.ID] = row
	r.byIdentity[identity] = row.ID
	return row.ID, nil
}

func (r *GameRepository) GetByID(_ context.Context, id int64) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.games[id]
	if !ok {
		return game.Game{}, false, nil
	}
	return *row, true, nil
}

func (r *GameRepository) FindByTeamPair(_ context.Context, leagueID, homeTeamID, awayTeamID int64, window game.Window) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FindByTeamPairCalls++
	for _, row := range r.sortedLocked() {
		if row.LeagueID != leagueID || row.HomeTeamID != homeTeamID || row.AwayTeamID != awayTeamID {
			continue
		}
		if inWindow(row.GameDate, window) {
			return row.ID, true, nil
		}
	}
	return 0, false, nil
}

func (r *GameRepository) ListByWindow(_ context.Context, leagueID int64, window game.Window, limit int) ([]game.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ListByWindowCalls++
	var out []game.Candidate
	for _, row := range r.sortedLocked() {
		if row.LeagueID != leagueID || !inWindow(row.GameDate, window) {
			continue
		}
		out = append(out, game.Candidate{
			ID:         row.ID,
			GameDate:   row.GameDate,
			HomeTeamID: row.HomeTeamID,
			AwayTeamID: row.AwayTeamID,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *GameRepository) ReplaceTeamBoxscores(_ context.Context, gameID int64, rows []game.TeamBoxscoreRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.teamBoxscores[gameID] = append([]game.TeamBoxscoreRow(nil), rows...)
	return nil
}

func (r *GameRepository) ReplacePlayerBoxscores(_ context.Context, gameID int64, rows []game.PlayerBoxscoreRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playerBoxscores[gameID] = append([]game.PlayerBoxscoreRow(nil), rows...)
	return nil
}

// TeamBoxscores returns the stored rows for assertions.
func (r *GameRepository) TeamBoxscores(gameID int64) []game.TeamBoxscoreRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.teamBoxscores[gameID]
}

// PlayerBoxscores returns the stored rows for assertions.
func (r *GameRepository) PlayerBoxscores(gameID int64) []game.PlayerBoxscoreRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerBoxscores[gameID]
}

func (r *GameRepository) sortedLocked() []*game.Game {
	out := make([]*game.Game, 0, len(r.games))
	for _, row := range r.games {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GameDate.Equal(out[j].GameDate) {
			return out[i].GameDate.Before(out[j].GameDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func inWindow(at time.Time, window game.Window) bool {
	return !at.Before(window.Start) && !at.After(window.End)
}
