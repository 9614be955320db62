package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	// FindByIdentity matches case-insensitively on name or abbreviation
	// within the league. No fuzzy logic; that lives in the odds matcher.
	FindByIdentity(ctx context.Context, leagueID int64, identity Identity) (int64, bool, error)
	GetByID(ctx context.Context, id int64) (Team, bool, error)
	// NamesByIDs returns the stored name per team id.
	NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
	// Upsert returns the existing team id when the identity already
	// resolves, otherwise inserts and returns the new id.
	Upsert(ctx context.Context, leagueID int64, identity Identity) (int64, error)
}
