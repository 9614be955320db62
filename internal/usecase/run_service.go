package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/odds"
	"github.com/statline/oddsync/internal/platform/logging"
)

const DefaultIngestWorkers = 8

// FeedSource supplies the normalized records of one league's drop.
type FeedSource interface {
	LoadGames(leagueCode string) ([]game.Normalized, error)
	LoadOddsSnapshots(leagueCode string) ([]odds.Snapshot, error)
}

// CycleSummary aggregates one full run across leagues.
type CycleSummary struct {
	Games         GameIngestSummary
	Odds          OddsIngestSummary
	LeaguesFailed int
}

// GameIngestSummary reports one games batch. Failed items are logged
// individually; a batch with failures still completes.
type GameIngestSummary struct {
	Total    int
	Upserted int
	Failed   int
}

// OddsIngestSummary reports one odds batch. Unmatched snapshots are
// expected and counted separately from failures.
type OddsIngestSummary struct {
	Total     int
	Matched   int
	Unmatched int
	Failed    int
}

// RunService drives batch ingestion, fanning individual upserts across
// a bounded worker pool. Item failures never abort the batch.
type RunService struct {
	gamesSvc *GameIngestService
	oddsSvc  *OddsIngestService
	workers  int
	logger   *logging.Logger
}

func NewRunService(gamesSvc *GameIngestService, oddsSvc *OddsIngestService, workers int, logger *logging.Logger) *RunService {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RunService{
		gamesSvc: gamesSvc,
		oddsSvc:  oddsSvc,
		workers:  workers,
		logger:   logger,
	}
}

// RunCycle drives one ingestion pass: per league, games first so the
// odds matcher has fixtures to land on, then odds. A league whose feed
// cannot be read is counted and skipped; the cycle keeps going.
func (s *RunService) RunCycle(ctx context.Context, source FeedSource, leagues []string) (CycleSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunService.RunCycle")
	defer span.End()

	var cycle CycleSummary
	for _, leagueCode := range leagues {
		if ctx.Err() != nil {
			break
		}

		games, err := source.LoadGames(leagueCode)
		if err != nil {
			cycle.LeaguesFailed++
			s.logger.ErrorContext(ctx, "load games feed failed", "league", leagueCode, "error", err)
			continue
		}
		gameSummary, err := s.IngestGames(ctx, games)
		cycle.Games.Total += gameSummary.Total
		cycle.Games.Upserted += gameSummary.Upserted
		cycle.Games.Failed += gameSummary.Failed
		if err != nil {
			break
		}
		s.logger.InfoContext(ctx, "games ingested",
			"league", leagueCode,
			"total", gameSummary.Total,
			"upserted", gameSummary.Upserted,
			"failed", gameSummary.Failed,
		)

		snapshots, err := source.LoadOddsSnapshots(leagueCode)
		if err != nil {
			cycle.LeaguesFailed++
			s.logger.ErrorContext(ctx, "load odds feed failed", "league", leagueCode, "error", err)
			continue
		}
		oddsSummary, err := s.IngestOdds(ctx, snapshots)
		cycle.Odds.Total += oddsSummary.Total
		cycle.Odds.Matched += oddsSummary.Matched
		cycle.Odds.Unmatched += oddsSummary.Unmatched
		cycle.Odds.Failed += oddsSummary.Failed
		if err != nil {
			break
		}
		s.logger.InfoContext(ctx, "odds ingested",
			"league", leagueCode,
			"total", oddsSummary.Total,
			"matched", oddsSummary.Matched,
			"unmatched", oddsSummary.Unmatched,
			"failed", oddsSummary.Failed,
		)
	}

	return cycle, ctx.Err()
}

// IngestGames upserts every normalized game concurrently. Cancellation
// stops issuing new upserts; in-flight ones finish.
func (s *RunService) IngestGames(ctx context.Context, batch []game.Normalized) (GameIngestSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunService.IngestGames")
	defer span.End()

	summary := GameIngestSummary{Total: len(batch)}
	if len(batch) == 0 {
		return summary, nil
	}

	var upserted, failed atomic.Int64
	workers := pool.New().WithMaxGoroutines(s.workers)

	for _, normalized := range batch {
		if ctx.Err() != nil {
			break
		}
		normalized := normalized
		workers.Go(func() {
			if _, err := s.gamesSvc.UpsertGame(ctx, normalized); err != nil {
				failed.Add(1)
				s.logger.ErrorContext(ctx, "game upsert failed",
					"league", normalized.Identity.LeagueCode,
					"home_team", normalized.Identity.HomeTeam.Name,
					"away_team", normalized.Identity.AwayTeam.Name,
					"error", err,
				)
				return
			}
			upserted.Add(1)
		})
	}
	workers.Wait()

	summary.Upserted = int(upserted.Load())
	summary.Failed = int(failed.Load())
	return summary, ctx.Err()
}

// IngestOdds upserts every odds snapshot concurrently. Cancellation
// stops issuing new upserts; in-flight ones finish.
func (s *RunService) IngestOdds(ctx context.Context, batch []odds.Snapshot) (OddsIngestSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunService.IngestOdds")
	defer span.End()

	summary := OddsIngestSummary{Total: len(batch)}
	if len(batch) == 0 {
		return summary, nil
	}

	workers, err := ants.NewPool(s.workers)
	if err != nil {
		return summary, fmt.Errorf("create odds worker pool: %w", err)
	}
	defer workers.Release()

	var matched, unmatched, failed atomic.Int64
	var wg sync.WaitGroup

	for _, snapshot := range batch {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		snapshot := snapshot
		submitErr := workers.Submit(func() {
			defer wg.Done()

			ok, err := s.oddsSvc.UpsertOdds(ctx, snapshot)
			switch {
			case err != nil:
				failed.Add(1)
				s.logger.ErrorContext(ctx, "odds upsert failed",
					"league", snapshot.LeagueCode,
					"home_team", snapshot.HomeTeam.Name,
					"away_team", snapshot.AwayTeam.Name,
					"book", snapshot.Book,
					"market_type", snapshot.MarketType,
					"error", err,
				)
			case ok:
				matched.Add(1)
			default:
				unmatched.Add(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			s.logger.ErrorContext(ctx, "odds upsert submit failed", "error", submitErr)
		}
	}
	wg.Wait()

	summary.Matched = int(matched.Load())
	summary.Unmatched = int(unmatched.Load())
	summary.Failed = int(failed.Load())
	return summary, ctx.Err()
}
