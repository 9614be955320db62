package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/statline/oddsync/internal/config"
	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/league"
	"github.com/statline/oddsync/internal/domain/odds"
	"github.com/statline/oddsync/internal/domain/team"
	"github.com/statline/oddsync/internal/infrastructure/repository/memory"
	"github.com/statline/oddsync/internal/infrastructure/repository/postgres"
	"github.com/statline/oddsync/internal/platform/cache"
	"github.com/statline/oddsync/internal/platform/logging"
	"github.com/statline/oddsync/internal/usecase"
)

// App bundles the wired ingestion pipeline and its shared resources.
type App struct {
	DB      *sqlx.DB
	Leagues league.Repository
	Run     *usecase.RunService
}

// Build connects to storage, asserts the schema the upserts depend on
// and wires repositories into the ingestion services. In dry-run mode
// everything runs against in-memory repositories and no connection is
// made; useful for validating a feed drop before letting it write.
func Build(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.DryRun {
		logger.Info("dry run enabled, using in-memory storage")
		leagueRepo := memory.NewLeagueRepository(cfg.Leagues...)
		return &App{
			Leagues: leagueRepo,
			Run: buildRunService(cfg, logger, leagueRepo,
				memory.NewTeamRepository(), memory.NewGameRepository(), memory.NewOddsRepository()),
		}, nil
	}

	db, err := otelsqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db.SetMaxOpenConns(cfg.IngestWorkerCount * 2)
	db.SetMaxIdleConns(cfg.IngestWorkerCount)

	if err := postgres.ValidateSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	leagueRepo := postgres.NewLeagueRepository(db)

	return &App{
		DB:      db,
		Leagues: leagueRepo,
		Run: buildRunService(cfg, logger, leagueRepo,
			postgres.NewTeamRepository(db), postgres.NewGameRepository(db), postgres.NewOddsRepository(db)),
	}, nil
}

func buildRunService(
	cfg config.Config,
	logger *logging.Logger,
	leagues league.Repository,
	teams team.Repository,
	games game.Repository,
	quotes odds.Repository,
) *usecase.RunService {
	sampler := logging.NewSampler(cfg.MatchLogSample)
	matchCache := cache.NewMatchCache(cfg.MatchCacheCapacity)

	resolver := usecase.NewTeamResolverService(teams, logger, sampler)
	gamesSvc := usecase.NewGameIngestService(leagues, games, resolver, logger)
	oddsSvc := usecase.NewOddsIngestService(
		leagues, teams, games, quotes,
		resolver, matchCache, logger, sampler,
	)
	return usecase.NewRunService(gamesSvc, oddsSvc, cfg.IngestWorkerCount, logger)
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
