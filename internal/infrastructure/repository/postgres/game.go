package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/statline/oddsync/internal/domain/game"
	qb "github.com/statline/oddsync/internal/platform/querybuilder"
)

// gameUpsertSuffix resolves a natural-identity collision in a single
// statement: re-scrapes update observed fields in place, the scrape
// version increments server-side and the source game key is write-once.
const gameUpsertSuffix = `ON CONFLICT ON CONSTRAINT uq_game_identity DO UPDATE
	SET home_score = EXCLUDED.home_score,
		away_score = EXCLUDED.away_score,
		status = EXCLUDED.status,
		venue = EXCLUDED.venue,
		external_ids = EXCLUDED.external_ids,
		source_game_key = COALESCE(games.source_game_key, EXCLUDED.source_game_key),
		scrape_version = games.scrape_version + 1,
		last_scraped_at = now(),
		updated_at = now()
	RETURNING id`

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

type gameInsertRow struct {
	LeagueID      int64          `db:"league_id"`
	Season        int            `db:"season"`
	SeasonType    string         `db:"season_type"`
	GameDate      time.Time      `db:"game_date"`
	HomeTeamID    int64          `db:"home_team_id"`
	AwayTeamID    int64          `db:"away_team_id"`
	HomeScore     sql.NullInt64  `db:"home_score"`
	AwayScore     sql.NullInt64  `db:"away_score"`
	Status        string         `db:"status"`
	Venue         string         `db:"venue"`
	SourceGameKey sql.NullString `db:"source_game_key"`
	ExternalIDs   []byte         `db:"external_ids"`
}

type gameRow struct {
	ID            int64          `db:"id"`
	LeagueID      int64          `db:"league_id"`
	Season        int            `db:"season"`
	SeasonType    string         `db:"season_type"`
	GameDate      time.Time      `db:"game_date"`
	HomeTeamID    int64          `db:"home_team_id"`
	AwayTeamID    int64          `db:"away_team_id"`
	HomeScore     sql.NullInt64  `db:"home_score"`
	AwayScore     sql.NullInt64  `db:"away_score"`
	Status        string         `db:"status"`
	Venue         string         `db:"venue"`
	SourceGameKey sql.NullString `db:"source_game_key"`
	ScrapeVersion int            `db:"scrape_version"`
	LastScrapedAt time.Time      `db:"last_scraped_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	ExternalIDs   []byte         `db:"external_ids"`
}

func (r *GameRepository) Upsert(ctx context.Context, params game.UpsertParams) (int64, error) {
	externalIDs, err := marshalExternalIDs(params.ExternalIDs)
	if err != nil {
		return 0, err
	}

	query, args, err := qb.InsertModel("games", gameInsertRow{
		LeagueID:      params.LeagueID,
		Season:        params.Season,
		SeasonType:    params.SeasonType,
		GameDate:      params.GameDate.UTC(),
		HomeTeamID:    params.HomeTeamID,
		AwayTeamID:    params.AwayTeamID,
		HomeScore:     nullInt(params.HomeScore),
		AwayScore:     nullInt(params.AwayScore),
		Status:        params.Status,
		Venue:         params.Venue,
		SourceGameKey: nullString(params.SourceGameKey),
		ExternalIDs:   externalIDs,
	}, gameUpsertSuffix)
	if err != nil {
		return 0, fmt.Errorf("build game upsert: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if isUndefinedObject(err) {
			return 0, errors.WithDetail(
				errors.Wrap(ErrConstraintMismatch, "uq_game_identity missing"),
				"the games upsert requires the uq_game_identity unique constraint; run migrations",
			)
		}
		return 0, fmt.Errorf("upsert game: %w", err)
	}
	return id, nil
}

func (r *GameRepository) GetByID(ctx context.Context, id int64) (game.Game, bool, error) {
	query, args, err := qb.Select(
		"id", "league_id", "season", "season_type", "game_date",
		"home_team_id", "away_team_id", "home_score", "away_score",
		"status", "venue", "source_game_key", "scrape_version",
		"last_scraped_at", "updated_at", "external_ids",
	).
		From("games").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build game query: %w", err)
	}

	var row gameRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("query game by id: %w", err)
	}

	out := game.Game{
		ID:            row.ID,
		LeagueID:      row.LeagueID,
		Season:        row.Season,
		SeasonType:    row.SeasonType,
		GameDate:      row.GameDate,
		HomeTeamID:    row.HomeTeamID,
		AwayTeamID:    row.AwayTeamID,
		HomeScore:     intPtr(row.HomeScore),
		AwayScore:     intPtr(row.AwayScore),
		Status:        row.Status,
		Venue:         row.Venue,
		SourceGameKey: stringPtr(row.SourceGameKey),
		ScrapeVersion: row.ScrapeVersion,
		LastScrapedAt: row.LastScrapedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.ExternalIDs) > 0 {
		if err := sonic.Unmarshal(row.ExternalIDs, &out.ExternalIDs); err != nil {
			return game.Game{}, false, fmt.Errorf("decode game external ids: %w", err)
		}
	}
	return out, true, nil
}

func (r *GameRepository) FindByTeamPair(ctx context.Context, leagueID, homeTeamID, awayTeamID int64, window game.Window) (int64, bool, error) {
	query, args, err := qb.Select("id").
		From("games").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("home_team_id", homeTeamID),
			qb.Eq("away_team_id", awayTeamID),
			qb.Expr("game_date BETWEEN ? AND ?", window.Start, window.End),
		).
		OrderBy("game_date", "id").
		Limit(1).
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("build game pair query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query game by team pair: %w", err)
	}
	return id, true, nil
}

func (r *GameRepository) ListByWindow(ctx context.Context, leagueID int64, window game.Window, limit int) ([]game.Candidate, error) {
	query, args, err := qb.Select("id", "game_date", "home_team_id", "away_team_id").
		From("games").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Expr("game_date BETWEEN ? AND ?", window.Start, window.End),
		).
		OrderBy("game_date", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build game window query: %w", err)
	}

	var rows []struct {
		ID         int64     `db:"id"`
		GameDate   time.Time `db:"game_date"`
		HomeTeamID int64     `db:"home_team_id"`
		AwayTeamID int64     `db:"away_team_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query games in window: %w", err)
	}

	out := make([]game.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, game.Candidate{
			ID:         row.ID,
			GameDate:   row.GameDate,
			HomeTeamID: row.HomeTeamID,
			AwayTeamID: row.AwayTeamID,
		})
	}
	return out, nil
}

func (r *GameRepository) ReplaceTeamBoxscores(ctx context.Context, gameID int64, rows []game.TeamBoxscoreRow) error {
	return r.replaceBoxscores(ctx, "game_team_boxscores", gameID, len(rows), func(b *qb.InsertBuilder) error {
		for _, row := range rows {
			stats, err := marshalStats(row.Stats)
			if err != nil {
				return err
			}
			b.Values(gameID, row.TeamID, stats)
		}
		return nil
	}, "game_id", "team_id", "stats")
}

func (r *GameRepository) ReplacePlayerBoxscores(ctx context.Context, gameID int64, rows []game.PlayerBoxscoreRow) error {
	return r.replaceBoxscores(ctx, "game_player_boxscores", gameID, len(rows), func(b *qb.InsertBuilder) error {
		for _, row := range rows {
			stats, err := marshalStats(row.Stats)
			if err != nil {
				return err
			}
			b.Values(gameID, row.TeamID, row.PlayerName, stats)
		}
		return nil
	}, "game_id", "team_id", "player_name", "stats")
}

// replaceBoxscores swaps a game's boxscore rows in one transaction so
// readers never observe a partially-replaced set.
func (r *GameRepository) replaceBoxscores(ctx context.Context, table string, gameID int64, count int, addRows func(*qb.InsertBuilder) error, columns ...string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin boxscore tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE game_id = $1", table), gameID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	if count > 0 {
		builder := qb.InsertInto(table).Columns(columns...)
		if err := addRows(builder); err != nil {
			return err
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return fmt.Errorf("build %s insert: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit boxscore tx: %w", err)
	}
	return nil
}

func marshalExternalIDs(ids map[string]string) ([]byte, error) {
	if len(ids) == 0 {
		return []byte("{}"), nil
	}
	out, err := sonic.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode external ids: %w", err)
	}
	return out, nil
}

func marshalStats(stats map[string]float64) ([]byte, error) {
	if len(stats) == 0 {
		return []byte("{}"), nil
	}
	out, err := sonic.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encode boxscore stats: %w", err)
	}
	return out, nil
}
