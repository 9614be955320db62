package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/statline/oddsync/internal/domain/league"
	qb "github.com/statline/oddsync/internal/platform/querybuilder"
)

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

type leagueRow struct {
	ID   int64  `db:"id"`
	Code string `db:"code"`
}

func (r *LeagueRepository) GetByCode(ctx context.Context, code string) (league.League, bool, error) {
	query, args, err := qb.Select("id", "code").
		From("leagues").
		Where(qb.Eq("code", code)).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build league query: %w", err)
	}

	var row leagueRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("query league by code: %w", err)
	}
	return league.League{ID: row.ID, Code: row.Code}, true, nil
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	query, args, err := qb.Select("id", "code").
		From("leagues").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build league list query: %w", err)
	}

	var rows []leagueRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, league.League{ID: row.ID, Code: row.Code})
	}
	return out, nil
}
