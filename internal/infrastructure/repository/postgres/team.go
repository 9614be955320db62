package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/statline/oddsync/internal/domain/team"
	qb "github.com/statline/oddsync/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

type teamRow struct {
	ID           int64  `db:"id"`
	LeagueID     int64  `db:"league_id"`
	Name         string `db:"name"`
	Abbreviation string `db:"abbreviation"`
	ExternalRef  string `db:"external_ref"`
}

type teamInsertRow struct {
	LeagueID     int64  `db:"league_id"`
	Name         string `db:"name"`
	Abbreviation string `db:"abbreviation"`
}

func (r *TeamRepository) FindByIdentity(ctx context.Context, leagueID int64, identity team.Identity) (int64, bool, error) {
	id, found, err := r.findOne(ctx, leagueID, qb.Expr("lower(name) = lower(?)", identity.Name))
	if err != nil || found {
		return id, found, err
	}
	if identity.Abbreviation == "" {
		return 0, false, nil
	}
	return r.findOne(ctx, leagueID, qb.Expr("lower(abbreviation) = lower(?)", identity.Abbreviation))
}

func (r *TeamRepository) findOne(ctx context.Context, leagueID int64, match qb.Condition) (int64, bool, error) {
	query, args, err := qb.Select("id").
		From("teams").
		Where(qb.Eq("league_id", leagueID), match).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("build team query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query team: %w", err)
	}
	return id, true, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (team.Team, bool, error) {
	query, args, err := qb.Select("id", "league_id", "name", "abbreviation", "external_ref").
		From("teams").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build team query: %w", err)
	}

	var row teamRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("query team by id: %w", err)
	}
	return team.Team{
		ID:           row.ID,
		LeagueID:     row.LeagueID,
		Name:         row.Name,
		Abbreviation: row.Abbreviation,
		ExternalRef:  row.ExternalRef,
	}, true, nil
}

func (r *TeamRepository) NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	query, args, err := qb.Select("id", "name").
		From("teams").
		Where(qb.In("id", values)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build team names query: %w", err)
	}

	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query team names: %w", err)
	}

	out := make(map[int64]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

// Upsert inserts the team, converging with concurrent creators on the
// (league_id, lower(name)) unique index. The no-op update lets the
// statement return the surviving row's id on conflict.
func (r *TeamRepository) Upsert(ctx context.Context, leagueID int64, identity team.Identity) (int64, error) {
	query, args, err := qb.InsertModel("teams", teamInsertRow{
		LeagueID:     leagueID,
		Name:         identity.Name,
		Abbreviation: identity.Abbreviation,
	}, `ON CONFLICT (league_id, lower(name)) DO UPDATE
		SET abbreviation = COALESCE(NULLIF(EXCLUDED.abbreviation, ''), teams.abbreviation)
		RETURNING id`)
	if err != nil {
		return 0, fmt.Errorf("build team upsert: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("upsert team: %w", err)
	}
	return id, nil
}
