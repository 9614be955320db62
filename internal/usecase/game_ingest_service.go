package usecase

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/league"
	"github.com/statline/oddsync/internal/platform/logging"
)

// GameIngestService persists scraped games. The upsert is keyed on the
// game's natural identity, so re-scraping the same fixture updates in
// place and bumps the scrape version instead of creating a duplicate.
type GameIngestService struct {
	leagues  league.Repository
	games    game.Repository
	resolver *TeamResolverService
	validate *validator.Validate
	logger   *logging.Logger
}

func NewGameIngestService(
	leagues league.Repository,
	games game.Repository,
	resolver *TeamResolverService,
	logger *logging.Logger,
) *GameIngestService {
	if logger == nil {
		logger = logging.Default()
	}
	return &GameIngestService{
		leagues:  leagues,
		games:    games,
		resolver: resolver,
		validate: validator.New(),
		logger:   logger,
	}
}

// UpsertGame resolves both team identities, then inserts or updates
// the game row atomically. Returns the persisted game id whether the
// row was created or updated.
func (s *GameIngestService) UpsertGame(ctx context.Context, normalized game.Normalized) (int64, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameIngestService.UpsertGame")
	defer span.End()

	if err := s.validate.StructCtx(ctx, normalized); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	identity := normalized.Identity
	lg, found, err := s.leagues.GetByCode(ctx, identity.LeagueCode)
	if err != nil {
		return 0, fmt.Errorf("get league by code: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLeague, identity.LeagueCode)
	}

	homeTeamID, err := s.resolver.Resolve(ctx, lg.ID, identity.HomeTeam)
	if err != nil {
		return 0, fmt.Errorf("resolve home team: %w", err)
	}
	awayTeamID, err := s.resolver.Resolve(ctx, lg.ID, identity.AwayTeam)
	if err != nil {
		return 0, fmt.Errorf("resolve away team: %w", err)
	}

	gameID, err := s.games.Upsert(ctx, game.UpsertParams{
		LeagueID:      lg.ID,
		Season:        identity.Season,
		SeasonType:    identity.SeasonType,
		GameDate:      identity.GameDate.UTC(),
		HomeTeamID:    homeTeamID,
		AwayTeamID:    awayTeamID,
		HomeScore:     normalized.HomeScore,
		AwayScore:     normalized.AwayScore,
		Status:        normalized.Status,
		Venue:         normalized.Venue,
		SourceGameKey: identity.SourceGameKey,
		ExternalIDs:   normalized.ExternalIDs,
	})
	if err != nil {
		return 0, fmt.Errorf("upsert game: %w", err)
	}

	if err := s.persistBoxscores(ctx, lg.ID, gameID, normalized); err != nil {
		return 0, err
	}

	s.logger.DebugContext(ctx, "game upserted",
		"league", identity.LeagueCode,
		"game_id", gameID,
		"home_team", identity.HomeTeam.Name,
		"away_team", identity.AwayTeam.Name,
		"game_date", identity.GameDate.UTC().Format("2006-01-02"),
	)
	return gameID, nil
}

func (s *GameIngestService) persistBoxscores(ctx context.Context, leagueID, gameID int64, normalized game.Normalized) error {
	if len(normalized.TeamBoxscores) > 0 {
		rows := make([]game.TeamBoxscoreRow, 0, len(normalized.TeamBoxscores))
		for _, box := range normalized.TeamBoxscores {
			teamID, err := s.resolver.Resolve(ctx, leagueID, box.Team)
			if err != nil {
				return fmt.Errorf("resolve boxscore team: %w", err)
			}
			rows = append(rows, game.TeamBoxscoreRow{TeamID: teamID, Stats: box.Stats})
		}
		if err := s.games.ReplaceTeamBoxscores(ctx, gameID, rows); err != nil {
			return fmt.Errorf("replace team boxscores: %w", err)
		}
	}

	if len(normalized.PlayerBoxscores) > 0 {
		rows := make([]game.PlayerBoxscoreRow, 0, len(normalized.PlayerBoxscores))
		for _, box := range normalized.PlayerBoxscores {
			teamID, err := s.resolver.Resolve(ctx, leagueID, box.Team)
			if err != nil {
				return fmt.Errorf("resolve boxscore team: %w", err)
			}
			rows = append(rows, game.PlayerBoxscoreRow{
				TeamID:     teamID,
				PlayerName: box.PlayerName,
				Stats:      box.Stats,
			})
		}
		if err := s.games.ReplacePlayerBoxscores(ctx, gameID, rows); err != nil {
			return fmt.Errorf("replace player boxscores: %w", err)
		}
	}

	return nil
}
