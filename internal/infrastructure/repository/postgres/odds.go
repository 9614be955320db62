package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/statline/oddsync/internal/domain/odds"
	qb "github.com/statline/oddsync/internal/platform/querybuilder"
)

// oddsUpsertSuffix overwrites the quote in place on identity collision.
// Later snapshots for the same (game, book, market, side, closing-line
// flag) win; history is out of scope by design of the schema.
const oddsUpsertSuffix = `ON CONFLICT ON CONSTRAINT uq_odds_quote_identity DO UPDATE
	SET line = EXCLUDED.line,
		price = EXCLUDED.price,
		observed_at = EXCLUDED.observed_at,
		source_key = EXCLUDED.source_key,
		raw_payload = EXCLUDED.raw_payload,
		updated_at = now()`

type OddsRepository struct {
	db *sqlx.DB
}

func NewOddsRepository(db *sqlx.DB) *OddsRepository {
	return &OddsRepository{db: db}
}

type quoteInsertRow struct {
	GameID        int64           `db:"game_id"`
	Book          string          `db:"book"`
	MarketType    string          `db:"market_type"`
	Side          string          `db:"side"`
	Line          sql.NullFloat64 `db:"line"`
	Price         float64         `db:"price"`
	IsClosingLine bool            `db:"is_closing_line"`
	ObservedAt    time.Time       `db:"observed_at"`
	SourceKey     string          `db:"source_key"`
	RawPayload    []byte          `db:"raw_payload"`
}

type quoteRow struct {
	GameID        int64           `db:"game_id"`
	Book          string          `db:"book"`
	MarketType    string          `db:"market_type"`
	Side          string          `db:"side"`
	Line          sql.NullFloat64 `db:"line"`
	Price         float64         `db:"price"`
	IsClosingLine bool            `db:"is_closing_line"`
	ObservedAt    time.Time       `db:"observed_at"`
	SourceKey     string          `db:"source_key"`
	RawPayload    []byte          `db:"raw_payload"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *OddsRepository) UpsertQuote(ctx context.Context, gameID int64, snapshot odds.Snapshot) error {
	observedAt := snapshot.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	query, args, err := qb.InsertModel("game_odds", quoteInsertRow{
		GameID:        gameID,
		Book:          snapshot.Book,
		MarketType:    snapshot.MarketType,
		Side:          odds.CanonicalSide(snapshot.Side),
		Line:          nullFloat(snapshot.Line),
		Price:         snapshot.Price,
		IsClosingLine: snapshot.IsClosingLine,
		ObservedAt:    observedAt.UTC(),
		SourceKey:     snapshot.SourceKey,
		RawPayload:    snapshot.RawPayload,
	}, oddsUpsertSuffix)
	if err != nil {
		return fmt.Errorf("build odds upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUndefinedObject(err) {
			return errors.WithDetail(
				errors.Wrap(ErrConstraintMismatch, "uq_odds_quote_identity missing"),
				"the odds upsert requires the uq_odds_quote_identity unique constraint; run migrations",
			)
		}
		return fmt.Errorf("upsert odds quote: %w", err)
	}
	return nil
}

func (r *OddsRepository) GetQuote(ctx context.Context, gameID int64, book, marketType, side string, isClosingLine bool) (odds.Quote, bool, error) {
	query, args, err := quoteSelect().
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("book", book),
			qb.Eq("market_type", marketType),
			qb.Eq("side", odds.CanonicalSide(side)),
			qb.Eq("is_closing_line", isClosingLine),
		).
		ToSQL()
	if err != nil {
		return odds.Quote{}, false, fmt.Errorf("build quote query: %w", err)
	}

	var row quoteRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return odds.Quote{}, false, nil
		}
		return odds.Quote{}, false, fmt.Errorf("query odds quote: %w", err)
	}
	return row.toQuote(), true, nil
}

func (r *OddsRepository) ListByGame(ctx context.Context, gameID int64) ([]odds.Quote, error) {
	query, args, err := quoteSelect().
		Where(qb.Eq("game_id", gameID)).
		OrderBy("book", "market_type", "side", "is_closing_line").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build quotes query: %w", err)
	}

	var rows []quoteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query odds quotes: %w", err)
	}

	out := make([]odds.Quote, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toQuote())
	}
	return out, nil
}

func quoteSelect() *qb.SelectBuilder {
	return qb.Select(
		"game_id", "book", "market_type", "side", "line", "price",
		"is_closing_line", "observed_at", "source_key", "raw_payload",
		"updated_at",
	).From("game_odds")
}

func (row quoteRow) toQuote() odds.Quote {
	return odds.Quote{
		GameID:        row.GameID,
		Book:          row.Book,
		MarketType:    row.MarketType,
		Side:          row.Side,
		Line:          floatPtr(row.Line),
		Price:         row.Price,
		IsClosingLine: row.IsClosingLine,
		ObservedAt:    row.ObservedAt,
		SourceKey:     row.SourceKey,
		RawPayload:    row.RawPayload,
		UpdatedAt:     row.UpdatedAt,
	}
}
