package odds

import "context"

// Repository describes odds persistence needs from use cases.
type Repository interface {
	// UpsertQuote inserts or overwrites the quote identified by
	// (gameID, book, market_type, side, is_closing_line).
	UpsertQuote(ctx context.Context, gameID int64, snapshot Snapshot) error
	GetQuote(ctx context.Context, gameID int64, book, marketType, side string, isClosingLine bool) (Quote, bool, error)
	ListByGame(ctx context.Context, gameID int64) ([]Quote, error)
}
