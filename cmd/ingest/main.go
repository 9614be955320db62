package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/statline/oddsync/external/feedfile"
	"github.com/statline/oddsync/internal/app"
	"github.com/statline/oddsync/internal/config"
	"github.com/statline/oddsync/internal/observability"
	"github.com/statline/oddsync/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	defer shutdownUptrace(context.Background())

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	defer stopPyroscope()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	loader := feedfile.NewLoader(cfg.FeedDir, logger)
	cycle, err := application.Run.RunCycle(ctx, loader, cfg.Leagues)
	logger.Info("ingest cycle finished",
		"games_total", cycle.Games.Total,
		"games_upserted", cycle.Games.Upserted,
		"games_failed", cycle.Games.Failed,
		"odds_total", cycle.Odds.Total,
		"odds_matched", cycle.Odds.Matched,
		"odds_unmatched", cycle.Odds.Unmatched,
		"odds_failed", cycle.Odds.Failed,
		"leagues_failed", cycle.LeaguesFailed,
	)
	if err != nil {
		logger.Error("ingest cycle interrupted", "error", err)
		os.Exit(1)
	}
	if cycle.LeaguesFailed > 0 {
		os.Exit(1)
	}
}
