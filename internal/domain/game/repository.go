package game

import "context"

// Repository describes game persistence needs from use cases.
//
// Upsert is a single atomic conflict-resolving statement keyed on the
// natural identity, never a read-then-write; concurrent writers racing
// on the same fixture converge via the storage engine.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (int64, error)
	GetByID(ctx context.Context, id int64) (Game, bool, error)
	// FindByTeamPair matches the pair in the given order only; callers
	// wanting swap tolerance issue a second call with the ids reversed.
	FindByTeamPair(ctx context.Context, leagueID, homeTeamID, awayTeamID int64, window Window) (int64, bool, error)
	ListByWindow(ctx context.Context, leagueID int64, window Window, limit int) ([]Candidate, error)
	ReplaceTeamBoxscores(ctx context.Context, gameID int64, rows []TeamBoxscoreRow) error
	ReplacePlayerBoxscores(ctx context.Context, gameID int64, rows []PlayerBoxscoreRow) error
}
