package postgres

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	qb "github.com/statline/oddsync/internal/platform/querybuilder"
)

// ErrConstraintMismatch means the live schema disagrees with the
// constraints the upsert statements name. Nothing recovers from this
// at runtime; callers should treat it as fatal and fix migrations.
var ErrConstraintMismatch = errors.New("schema constraint mismatch")

type expectedConstraint struct {
	table   string
	name    string
	columns []string
}

var requiredConstraints = []expectedConstraint{
	{
		table:   "games",
		name:    "uq_game_identity",
		columns: []string{"league_id", "season", "season_type", "game_date", "home_team_id", "away_team_id"},
	},
	{
		table:   "game_odds",
		name:    "uq_odds_quote_identity",
		columns: []string{"game_id", "book", "market_type", "side", "is_closing_line"},
	},
}

const constraintCatalogJoin = "pg_constraint c " +
	"JOIN unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord) ON true " +
	"JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum"

func constraintColumnsQuery(constraintName, table string) (string, []any, error) {
	return qb.Select("a.attname").
		From(constraintCatalogJoin).
		Where(
			qb.Eq("c.conname", constraintName),
			qb.EqLiteral("c.contype", "u"),
			qb.Expr("c.conrelid = ?::regclass", table),
		).
		OrderBy("k.ord").
		ToSQL()
}

// ValidateSchema asserts at startup that the unique constraints the
// conflict-resolving upserts depend on exist with the expected column
// sets. Failing fast here beats discovering a renamed constraint one
// statement at a time mid-ingest.
func ValidateSchema(ctx context.Context, db *sqlx.DB) error {
	for _, want := range requiredConstraints {
		query, args, err := constraintColumnsQuery(want.name, want.table)
		if err != nil {
			return errors.Wrapf(err, "build constraint query for %s", want.name)
		}

		var columns []string
		if err := db.SelectContext(ctx, &columns, query, args...); err != nil {
			if isUndefinedTable(err) {
				return errors.Wrapf(ErrConstraintMismatch,
					"table %s does not exist", want.table)
			}
			return errors.Wrapf(err, "inspect constraint %s", want.name)
		}
		if len(columns) == 0 {
			return errors.Wrapf(ErrConstraintMismatch,
				"constraint %s on table %s does not exist", want.name, want.table)
		}
		if !equalColumns(columns, want.columns) {
			return errors.Wrapf(ErrConstraintMismatch,
				"constraint %s covers (%s), expected (%s)",
				want.name, strings.Join(columns, ", "), strings.Join(want.columns, ", "))
		}
	}
	return nil
}

func equalColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
