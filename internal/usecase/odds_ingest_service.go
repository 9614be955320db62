package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/league"
	"github.com/statline/oddsync/internal/domain/odds"
	"github.com/statline/oddsync/internal/domain/team"
	"github.com/statline/oddsync/internal/platform/cache"
	"github.com/statline/oddsync/internal/platform/logging"
)

const (
	// exactNameScanLimit bounds the candidate scan for the exact-name
	// tier; a league rarely has more than a handful of games on one day.
	exactNameScanLimit = 20
	// tolerantNameScanLimit bounds the tolerant tier, which has to look
	// at every game in the window for leagues with hundreds of teams.
	tolerantNameScanLimit = 200
)

// matchInput is the shared contract between matching tiers.
type matchInput struct {
	leagueID      int64
	leagueCode    string
	snapshot      odds.Snapshot
	homeTeamID    int64
	awayTeamID    int64
	homeCanonical string
	awayCanonical string
	window        game.Window
}

// matchFunc is one ordered matching strategy. Tiers are evaluated
// first-match-wins; a tier reporting (0, false, nil) defers to the
// next one.
type matchFunc func(ctx context.Context, in matchInput) (int64, bool, error)

// OddsIngestService maps odds snapshots to persisted games and
// persists the quotes. Matching tolerates name variance and home/away
// swap; repeated lookups for the same league/day/team-pair are served
// from a bounded process-local cache, including negative outcomes.
type OddsIngestService struct {
	leagues  league.Repository
	teams    team.Repository
	games    game.Repository
	quotes   odds.Repository
	resolver *TeamResolverService
	cache    *cache.MatchCache
	tiers    []matchFunc
	validate *validator.Validate
	logger   *logging.Logger
	sampler  *logging.Sampler
}

func NewOddsIngestService(
	leagues league.Repository,
	teams team.Repository,
	games game.Repository,
	quotes odds.Repository,
	resolver *TeamResolverService,
	matchCache *cache.MatchCache,
	logger *logging.Logger,
	sampler *logging.Sampler,
) *OddsIngestService {
	if matchCache == nil {
		matchCache = cache.NewMatchCache(cache.DefaultCapacity)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if sampler == nil {
		sampler = logging.NewSampler(logging.DefaultSampleRate)
	}

	s := &OddsIngestService{
		leagues:  leagues,
		teams:    teams,
		games:    games,
		quotes:   quotes,
		resolver: resolver,
		cache:    matchCache,
		validate: validator.New(),
		logger:   logger,
		sampler:  sampler,
	}
	s.tiers = []matchFunc{
		s.matchByTeamIDs,
		s.matchByNames,
	}
	return s
}

// UpsertOdds resolves the snapshot to a persisted game and upserts the
// quote. An unmatchable snapshot is an expected outcome, not an error:
// it returns (false, nil), is recorded as a negative cache entry and
// the snapshot is dropped. Storage errors propagate unmodified; the
// upsert is idempotent, so callers may safely retry.
func (s *OddsIngestService) UpsertOdds(ctx context.Context, snapshot odds.Snapshot) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OddsIngestService.UpsertOdds")
	defer span.End()

	if err := s.validate.StructCtx(ctx, snapshot); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	lg, found, err := s.leagues.GetByCode(ctx, snapshot.LeagueCode)
	if err != nil {
		return false, fmt.Errorf("get league by code: %w", err)
	}
	if !found {
		return false, fmt.Errorf("%w: %q", ErrUnknownLeague, snapshot.LeagueCode)
	}

	// Team resolution always runs, even on a cache hit: it is what
	// creates teams on first sighting.
	homeTeamID, err := s.resolver.Resolve(ctx, lg.ID, snapshot.HomeTeam)
	if err != nil {
		return false, fmt.Errorf("resolve home team: %w", err)
	}
	awayTeamID, err := s.resolver.Resolve(ctx, lg.ID, snapshot.AwayTeam)
	if err != nil {
		return false, fmt.Errorf("resolve away team: %w", err)
	}

	key := cache.NewKey(snapshot.LeagueCode, snapshot.GameDate, homeTeamID, awayTeamID)
	if gameID, outcome := s.cache.Lookup(key); outcome != cache.OutcomeAbsent {
		if outcome == cache.OutcomeNoMatch {
			return false, nil
		}
		// Skip the matching diagnostics entirely; go straight to the
		// quote upsert.
		if err := s.quotes.UpsertQuote(ctx, gameID, snapshot); err != nil {
			return false, fmt.Errorf("upsert odds quote: %w", err)
		}
		return true, nil
	}

	in := matchInput{
		leagueID:      lg.ID,
		leagueCode:    snapshot.LeagueCode,
		snapshot:      snapshot,
		homeTeamID:    homeTeamID,
		awayTeamID:    awayTeamID,
		homeCanonical: CanonicalTeamName(snapshot.LeagueCode, snapshot.HomeTeam.Name),
		awayCanonical: CanonicalTeamName(snapshot.LeagueCode, snapshot.AwayTeam.Name),
		window:        matchWindow(snapshot.GameDate),
	}

	gameID, matched, err := s.cache.Resolve(key, func() (int64, bool, error) {
		return s.runTiers(ctx, in)
	})
	if err != nil {
		return false, err
	}
	if !matched {
		return false, nil
	}

	if err := s.quotes.UpsertQuote(ctx, gameID, snapshot); err != nil {
		return false, fmt.Errorf("upsert odds quote: %w", err)
	}
	return true, nil
}

func (s *OddsIngestService) runTiers(ctx context.Context, in matchInput) (int64, bool, error) {
	if s.sampler.ShouldLog("odds_matching_start") {
		s.logger.DebugContext(ctx, "odds matching start",
			"league", in.leagueCode,
			"home_team", in.snapshot.HomeTeam.Name,
			"home_team_id", in.homeTeamID,
			"away_team", in.snapshot.AwayTeam.Name,
			"away_team_id", in.awayTeamID,
			"game_date", in.snapshot.GameDate.UTC().Format("2006-01-02"),
			"window_start", in.window.Start,
			"window_end", in.window.End,
		)
	}

	for _, tier := range s.tiers {
		gameID, matched, err := tier(ctx, in)
		if err != nil {
			return 0, false, err
		}
		if matched {
			return gameID, true, nil
		}
	}

	s.logUnmatched(ctx, in)
	return 0, false, nil
}

// matchByTeamIDs is the exact tier: both resolved team ids, in either
// order, inside the date window.
func (s *OddsIngestService) matchByTeamIDs(ctx context.Context, in matchInput) (int64, bool, error) {
	gameID, found, err := s.games.FindByTeamPair(ctx, in.leagueID, in.homeTeamID, in.awayTeamID, in.window)
	if err != nil {
		return 0, false, fmt.Errorf("find game by team pair: %w", err)
	}
	if found {
		return gameID, true, nil
	}

	gameID, found, err = s.games.FindByTeamPair(ctx, in.leagueID, in.awayTeamID, in.homeTeamID, in.window)
	if err != nil {
		return 0, false, fmt.Errorf("find game by swapped team pair: %w", err)
	}
	if found {
		s.logger.DebugContext(ctx, "odds game matched with home/away swapped",
			"league", in.leagueCode,
			"game_id", gameID,
			"home_team", in.snapshot.HomeTeam.Name,
			"away_team", in.snapshot.AwayTeam.Name,
		)
		return gameID, true, nil
	}
	return 0, false, nil
}

// matchByNames is the name tier. NCAAB gets tolerant matching; every
// other league compares raw and canonical names case-insensitively.
func (s *OddsIngestService) matchByNames(ctx context.Context, in matchInput) (int64, bool, error) {
	if isTolerantLeague(in.leagueCode) {
		return s.matchByNamesTolerant(ctx, in)
	}
	return s.matchByNamesExact(ctx, in)
}

func (s *OddsIngestService) matchByNamesExact(ctx context.Context, in matchInput) (int64, bool, error) {
	candidates, names, err := s.candidateNames(ctx, in, exactNameScanLimit)
	if err != nil {
		return 0, false, err
	}

	homeWanted := []string{strings.ToLower(in.snapshot.HomeTeam.Name), strings.ToLower(in.homeCanonical)}
	awayWanted := []string{strings.ToLower(in.snapshot.AwayTeam.Name), strings.ToLower(in.awayCanonical)}

	for _, candidate := range candidates {
		storedHome := strings.ToLower(names[candidate.HomeTeamID])
		storedAway := strings.ToLower(names[candidate.AwayTeamID])

		if matchesAny(storedHome, homeWanted) && matchesAny(storedAway, awayWanted) {
			s.logger.InfoContext(ctx, "odds game matched by name",
				"league", in.leagueCode,
				"game_id", candidate.ID,
				"home_team", in.snapshot.HomeTeam.Name,
				"away_team", in.snapshot.AwayTeam.Name,
			)
			return candidate.ID, true, nil
		}
		if matchesAny(storedHome, awayWanted) && matchesAny(storedAway, homeWanted) {
			s.logger.InfoContext(ctx, "odds game matched by name with home/away swapped",
				"league", in.leagueCode,
				"game_id", candidate.ID,
				"requested_home", in.snapshot.HomeTeam.Name,
				"requested_away", in.snapshot.AwayTeam.Name,
				"matched_as_home", names[candidate.HomeTeamID],
				"matched_as_away", names[candidate.AwayTeamID],
			)
			return candidate.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *OddsIngestService) matchByNamesTolerant(ctx context.Context, in matchInput) (int64, bool, error) {
	candidates, names, err := s.candidateNames(ctx, in, tolerantNameScanLimit)
	if err != nil {
		return 0, false, err
	}

	// The mapped canonical form drives containment and token overlap;
	// the raw feed form only adds an extra equality comparand.
	homeNorm := normalizeTolerantName(in.homeCanonical)
	awayNorm := normalizeTolerantName(in.awayCanonical)
	homeRawNorm := normalizeTolerantName(in.snapshot.HomeTeam.Name)
	awayRawNorm := normalizeTolerantName(in.snapshot.AwayTeam.Name)

	for _, candidate := range candidates {
		storedHome := normalizeTolerantName(names[candidate.HomeTeamID])
		storedAway := normalizeTolerantName(names[candidate.AwayTeamID])

		if tolerantNamesMatch(homeNorm, homeRawNorm, storedHome) &&
			tolerantNamesMatch(awayNorm, awayRawNorm, storedAway) {
			s.logger.InfoContext(ctx, "odds game matched by normalized name",
				"league", in.leagueCode,
				"game_id", candidate.ID,
				"home_team", in.snapshot.HomeTeam.Name,
				"home_normalized", homeNorm,
				"home_db_name", names[candidate.HomeTeamID],
				"away_team", in.snapshot.AwayTeam.Name,
				"away_normalized", awayNorm,
				"away_db_name", names[candidate.AwayTeamID],
			)
			return candidate.ID, true, nil
		}

		if tolerantNamesMatch(awayNorm, awayRawNorm, storedHome) &&
			tolerantNamesMatch(homeNorm, homeRawNorm, storedAway) {
			s.logger.InfoContext(ctx, "odds game matched by normalized name with home/away swapped",
				"league", in.leagueCode,
				"game_id", candidate.ID,
				"requested_home", in.snapshot.HomeTeam.Name,
				"requested_away", in.snapshot.AwayTeam.Name,
				"matched_as_home", names[candidate.AwayTeamID],
				"matched_as_away", names[candidate.HomeTeamID],
			)
			return candidate.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *OddsIngestService) candidateNames(ctx context.Context, in matchInput, limit int) ([]game.Candidate, map[int64]string, error) {
	candidates, err := s.games.ListByWindow(ctx, in.leagueID, in.window, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list games in window: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	seen := make(map[int64]struct{}, len(candidates)*2)
	ids := make([]int64, 0, len(candidates)*2)
	for _, candidate := range candidates {
		for _, id := range []int64{candidate.HomeTeamID, candidate.AwayTeamID} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	names, err := s.teams.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load candidate team names: %w", err)
	}
	return candidates, names, nil
}

func (s *OddsIngestService) logUnmatched(ctx context.Context, in matchInput) {
	if !s.sampler.ShouldLog("odds_game_missing") {
		return
	}

	s.logger.WarnContext(ctx, "odds game missing",
		"league", in.leagueCode,
		"home_team", in.snapshot.HomeTeam.Name,
		"home_team_abbr", in.snapshot.HomeTeam.Abbreviation,
		"home_team_id", in.homeTeamID,
		"away_team", in.snapshot.AwayTeam.Name,
		"away_team_abbr", in.snapshot.AwayTeam.Abbreviation,
		"away_team_id", in.awayTeamID,
		"game_date", in.snapshot.GameDate.UTC().Format("2006-01-02"),
		"window_start", in.window.Start,
		"window_end", in.window.End,
	)
}

func isTolerantLeague(code string) bool {
	return code == league.CodeNCAAB
}

func matchesAny(stored string, wanted []string) bool {
	if stored == "" {
		return false
	}
	for _, w := range wanted {
		if stored == w {
			return true
		}
	}
	return false
}

// matchWindow is the snapshot's calendar day padded a day in each
// direction; feed dates are timezone-ambiguous relative to scraped
// tip-off times.
func matchWindow(gameDate time.Time) game.Window {
	day := gameDate.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	end := start.AddDate(0, 0, 3).Add(-time.Nanosecond)
	return game.Window{Start: start, End: end}
}
