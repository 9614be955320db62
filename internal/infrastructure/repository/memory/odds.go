package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/statline/oddsync/internal/domain/odds"
)

type quoteIdentity struct {
	gameID        int64
	book          string
	marketType    string
	side          string
	isClosingLine bool
}

// OddsRepository is an in-memory odds.Repository for tests and local
// runs. Quotes are keyed on the quote identity, with the side
// canonicalized the same way the postgres implementation does.
type OddsRepository struct {
	mu     sync.RWMutex
	quotes map[quoteIdentity]odds.Quote

	UpsertQuoteCalls int
}

func NewOddsRepository() *OddsRepository {
	return &OddsRepository{quotes: make(map[quoteIdentity]odds.Quote)}
}

func (r *OddsRepository) UpsertQuote(_ context.Context, gameID int64, snapshot odds.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpsertQuoteCalls++
	side := odds.CanonicalSide(snapshot.Side)
	identity := quoteIdentity{
		gameID:        gameID,
		book:          snapshot.Book,
		marketType:    snapshot.MarketType,
		side:          side,
		isClosingLine: snapshot.IsClosingLine,
	}
	r.quotes[identity] = odds.Quote{
		GameID:        gameID,
		Book:          snapshot.Book,
		MarketType:    snapshot.MarketType,
		Side:          side,
		Line:          snapshot.Line,
		Price:         snapshot.Price,
		IsClosingLine: snapshot.IsClosingLine,
		ObservedAt:    snapshot.ObservedAt,
		SourceKey:     snapshot.SourceKey,
		RawPayload:    snapshot.RawPayload,
		UpdatedAt:     time.Now().UTC(),
	}
	return nil
}

func (r *OddsRepository) GetQuote(_ context.Context, gameID int64, book, marketType, side string, isClosingLine bool) (odds.Quote, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quote, ok := r.quotes[quoteIdentity{
		gameID:        gameID,
		book:          book,
		marketType:    marketType,
		side:          odds.CanonicalSide(side),
		isClosingLine: isClosingLine,
	}]
	return quote, ok, nil
}

func (r *OddsRepository) ListByGame(_ context.Context, gameID int64) ([]odds.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []odds.Quote
	for _, quote := range r.quotes {
		if quote.GameID == gameID {
			out = append(out, quote)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Book != b.Book {
			return a.Book < b.Book
		}
		if a.MarketType != b.MarketType {
			return a.MarketType < b.MarketType
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return !a.IsClosingLine && b.IsClosingLine
	})
	return out, nil
}
