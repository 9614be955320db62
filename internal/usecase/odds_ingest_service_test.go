package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/league"
	"github.com/statline/oddsync/internal/domain/odds"
	"github.com/statline/oddsync/internal/domain/team"
	"github.com/statline/oddsync/internal/infrastructure/repository/memory"
	"github.com/statline/oddsync/internal/platform/cache"
)

type oddsFixture struct {
	svc     *OddsIngestService
	leagues *memory.LeagueRepository
	teams   *memory.TeamRepository
	games   *memory.GameRepository
	quotes  *memory.OddsRepository
}

func newOddsFixture() *oddsFixture {
	leagues := memory.NewLeagueRepository(league.CodeNBA, league.CodeNCAAB)
	teams := memory.NewTeamRepository()
	games := memory.NewGameRepository()
	quotes := memory.NewOddsRepository()
	resolver := NewTeamResolverService(teams, nil, nil)
	svc := NewOddsIngestService(leagues, teams, games, quotes, resolver, cache.NewMatchCache(16), nil, nil)
	return &oddsFixture{svc: svc, leagues: leagues, teams: teams, games: games, quotes: quotes}
}

// seedGame stores a fixture for the given league with freshly created
// teams and returns the game id plus the team ids.
func (f *oddsFixture) seedGame(t *testing.T, leagueID int64, homeName, awayName string, date time.Time) (int64, int64, int64) {
	t.Helper()

	homeID := f.teams.Seed(leagueID, homeName, "")
	awayID := f.teams.Seed(leagueID, awayName, "")
	gameID, err := f.games.Upsert(context.Background(), game.UpsertParams{
		LeagueID:   leagueID,
		Season:     2025,
		SeasonType: "regular",
		GameDate:   date,
		HomeTeamID: homeID,
		AwayTeamID: awayID,
		Status:     "scheduled",
	})
	if err != nil {
		t.Fatalf("seed game failed: %v", err)
	}
	return gameID, homeID, awayID
}

func lineRef(v float64) *float64 { return &v }

func nbaSnapshot(date time.Time) odds.Snapshot {
	return odds.Snapshot{
		LeagueCode: league.CodeNBA,
		GameDate:   date,
		HomeTeam:   team.Identity{Name: "Boston Celtics"},
		AwayTeam:   team.Identity{Name: "New York Knicks"},
		Book:       "pinnacle",
		MarketType: "spread",
		Side:       "home",
		Line:       lineRef(-6.5),
		Price:      -110,
		ObservedAt: date.Add(-2 * time.Hour),
	}
}

func TestOddsIngest_MatchesByTeamIDsAndPersistsQuote(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	gameID, _, _ := f.seedGame(t, 1, "Boston Celtics", "New York Knicks", date)

	matched, err := f.svc.UpsertOdds(context.Background(), nbaSnapshot(date))
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if !matched {
		t.Fatal("expected snapshot to match the seeded game")
	}

	quote, found, err := f.quotes.GetQuote(context.Background(), gameID, "pinnacle", "spread", "home", false)
	if err != nil || !found {
		t.Fatalf("expected persisted quote, found=%t err=%v", found, err)
	}
	if quote.Line == nil || *quote.Line != -6.5 || quote.Price != -110 {
		t.Fatalf("unexpected quote values: line=%v price=%v", quote.Line, quote.Price)
	}
}

func TestOddsIngest_IdempotentOverwrite(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	gameID, _, _ := f.seedGame(t, 1, "Boston Celtics", "New York Knicks", date)

	first := nbaSnapshot(date)
	if _, err := f.svc.UpsertOdds(context.Background(), first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	moved := nbaSnapshot(date)
	moved.Line = lineRef(-7)
	moved.Price = -115
	if _, err := f.svc.UpsertOdds(context.Background(), moved); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	all, err := f.quotes.ListByGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("list quotes failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one quote row after repeat, got %d", len(all))
	}
	if all[0].Line == nil || *all[0].Line != -7 || all[0].Price != -115 {
		t.Fatalf("expected later snapshot to win: line=%v price=%v", all[0].Line, all[0].Price)
	}
}

func TestOddsIngest_CacheHitSkipsMatchQueries(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	f.seedGame(t, 1, "Boston Celtics", "New York Knicks", date)

	if _, err := f.svc.UpsertOdds(context.Background(), nbaSnapshot(date)); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	pairCalls := f.games.FindByTeamPairCalls
	windowCalls := f.games.ListByWindowCalls
	upserts := f.quotes.UpsertQuoteCalls

	matched, err := f.svc.UpsertOdds(context.Background(), nbaSnapshot(date))
	if err != nil || !matched {
		t.Fatalf("second upsert failed: matched=%t err=%v", matched, err)
	}

	if f.games.FindByTeamPairCalls != pairCalls {
		t.Fatalf("expected no extra pair queries on cache hit, got %d more", f.games.FindByTeamPairCalls-pairCalls)
	}
	if f.games.ListByWindowCalls != windowCalls {
		t.Fatalf("expected no extra window scans on cache hit, got %d more", f.games.ListByWindowCalls-windowCalls)
	}
	if f.quotes.UpsertQuoteCalls != upserts+1 {
		t.Fatalf("expected exactly one more quote upsert, got %d more", f.quotes.UpsertQuoteCalls-upserts)
	}
}

func TestOddsIngest_UnmatchedIsNegativeCachedNotAnError(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)

	snapshot := nbaSnapshot(date)
	matched, err := f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("expected unmatched snapshot to not error, got %v", err)
	}
	if matched {
		t.Fatal("expected no match with no seeded games")
	}
	if f.quotes.UpsertQuoteCalls != 0 {
		t.Fatal("expected no quote persisted for unmatched snapshot")
	}

	pairCalls := f.games.FindByTeamPairCalls
	windowCalls := f.games.ListByWindowCalls

	matched, err = f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil || matched {
		t.Fatalf("expected cached no-match, matched=%t err=%v", matched, err)
	}
	if f.games.FindByTeamPairCalls != pairCalls || f.games.ListByWindowCalls != windowCalls {
		t.Fatal("expected negative cache to suppress match tier queries")
	}
}

func TestOddsIngest_HomeAwaySwapTolerance(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	// Stored with the opposite home/away assignment.
	gameID, _, _ := f.seedGame(t, 1, "New York Knicks", "Boston Celtics", date)

	matched, err := f.svc.UpsertOdds(context.Background(), nbaSnapshot(date))
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if !matched {
		t.Fatal("expected swapped pair to match")
	}
	if _, found, _ := f.quotes.GetQuote(context.Background(), gameID, "pinnacle", "spread", "home", false); !found {
		t.Fatal("expected quote on the swapped game")
	}
}

func TestOddsIngest_AdjacentDayWindow(t *testing.T) {
	f := newOddsFixture()
	// Stored late on Feb 1 UTC; the feed labels it Feb 2.
	stored := time.Date(2025, 2, 2, 2, 30, 0, 0, time.UTC)
	f.seedGame(t, 1, "Boston Celtics", "New York Knicks", stored)

	snapshot := nbaSnapshot(time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC))
	matched, err := f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if !matched {
		t.Fatal("expected a game one day off to still match")
	}
}

func TestOddsIngest_NullSideQuotesShareIdentity(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	gameID, _, _ := f.seedGame(t, 1, "Boston Celtics", "New York Knicks", date)

	total := nbaSnapshot(date)
	total.MarketType = "total"
	total.Side = ""
	total.Line = lineRef(224.5)

	repeat := total
	repeat.Side = "   "
	repeat.Line = lineRef(225.5)

	if _, err := f.svc.UpsertOdds(context.Background(), total); err != nil {
		t.Fatalf("first total upsert failed: %v", err)
	}
	if _, err := f.svc.UpsertOdds(context.Background(), repeat); err != nil {
		t.Fatalf("second total upsert failed: %v", err)
	}

	quote, found, err := f.quotes.GetQuote(context.Background(), gameID, "pinnacle", "total", "", false)
	if err != nil || !found {
		t.Fatalf("expected side-less quote, found=%t err=%v", found, err)
	}
	if quote.Line == nil || *quote.Line != 225.5 {
		t.Fatalf("expected both snapshots to land on one row, line=%v", quote.Line)
	}

	all, _ := f.quotes.ListByGame(context.Background(), gameID)
	if len(all) != 1 {
		t.Fatalf("expected one quote row, got %d", len(all))
	}
}

func TestOddsIngest_LiveAndClosingLineCoexist(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	gameID, _, _ := f.seedGame(t, 1, "Boston Celtics", "New York Knicks", date)

	live := nbaSnapshot(date)
	closing := nbaSnapshot(date)
	closing.IsClosingLine = true
	closing.Line = lineRef(-7.5)
	closing.Price = -112

	if _, err := f.svc.UpsertOdds(context.Background(), live); err != nil {
		t.Fatalf("live upsert failed: %v", err)
	}
	if _, err := f.svc.UpsertOdds(context.Background(), closing); err != nil {
		t.Fatalf("closing upsert failed: %v", err)
	}

	all, err := f.quotes.ListByGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("list quotes failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected live and closing rows to coexist, got %d", len(all))
	}

	quote, found, err := f.quotes.GetQuote(context.Background(), gameID, "pinnacle", "spread", "home", true)
	if err != nil || !found {
		t.Fatalf("expected closing-line quote, found=%t err=%v", found, err)
	}
	if quote.Line == nil || *quote.Line != -7.5 || quote.Price != -112 {
		t.Fatalf("unexpected closing quote values: line=%v price=%v", quote.Line, quote.Price)
	}
	if quote, _, _ := f.quotes.GetQuote(context.Background(), gameID, "pinnacle", "spread", "home", false); quote.Line == nil || *quote.Line != -6.5 {
		t.Fatalf("expected live quote untouched, line=%v", quote.Line)
	}
}

func TestOddsIngest_NCAABCanonicalOverride(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	gameID, _, _ := f.seedGame(t, 2, "St. John's (NY)", "Creighton", date)

	snapshot := odds.Snapshot{
		LeagueCode: league.CodeNCAAB,
		GameDate:   date,
		HomeTeam:   team.Identity{Name: "St. John's Red Storm"},
		AwayTeam:   team.Identity{Name: "Creighton Bluejays"},
		Book:       "draftkings",
		MarketType: "moneyline",
		Side:       "home",
		Price:      -145,
	}

	matched, err := f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if !matched {
		t.Fatal("expected canonical override plus tolerant matching to find the game")
	}
	if _, found, _ := f.quotes.GetQuote(context.Background(), gameID, "draftkings", "moneyline", "home", false); !found {
		t.Fatal("expected quote on the canonical game")
	}
}

func TestOddsIngest_NCAABMappedNameMatchesByContainment(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	// Stored without the (NY) suffix the override maps to; only the
	// mapped form is contained in it.
	gameID, _, _ := f.seedGame(t, 2, "St. John's", "Creighton", date)

	snapshot := odds.Snapshot{
		LeagueCode: league.CodeNCAAB,
		GameDate:   date,
		HomeTeam:   team.Identity{Name: "St Johns Red Storm"},
		AwayTeam:   team.Identity{Name: "Creighton Bluejays"},
		Book:       "draftkings",
		MarketType: "moneyline",
		Side:       "home",
		Price:      -145,
	}

	matched, err := f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if !matched {
		t.Fatal("expected containment against the mapped name to find the game")
	}
	if _, found, _ := f.quotes.GetQuote(context.Background(), gameID, "draftkings", "moneyline", "home", false); !found {
		t.Fatal("expected quote on the mapped-name game")
	}
}

func TestOddsIngest_NCAABTolerantNameTier(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	f.seedGame(t, 2, "North Carolina", "Duke", date)

	snapshot := odds.Snapshot{
		LeagueCode: league.CodeNCAAB,
		GameDate:   date,
		HomeTeam:   team.Identity{Name: "North Carolina Tar Heels"},
		AwayTeam:   team.Identity{Name: "Duke Blue Devils"},
		Book:       "fanduel",
		MarketType: "spread",
		Side:       "away",
		Line:       lineRef(-3.5),
		Price:      -108,
	}

	matched, err := f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if !matched {
		t.Fatal("expected tolerant name tier to match partial names")
	}
}

func TestOddsIngest_NonTolerantLeagueRequiresExactName(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)
	f.seedGame(t, 1, "Boston Celtics", "New York Knicks", date)

	snapshot := nbaSnapshot(date)
	snapshot.HomeTeam.Name = "Boston"

	matched, err := f.svc.UpsertOdds(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}
	if matched {
		t.Fatal("expected partial name to not match outside the tolerant league")
	}
}

func TestOddsIngest_ValidationFailures(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)

	missingBook := nbaSnapshot(date)
	missingBook.Book = ""
	if _, err := f.svc.UpsertOdds(context.Background(), missingBook); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing book, got %v", err)
	}

	unknown := nbaSnapshot(date)
	unknown.LeagueCode = "EPL"
	if _, err := f.svc.UpsertOdds(context.Background(), unknown); !errors.Is(err, ErrUnknownLeague) {
		t.Fatalf("expected ErrUnknownLeague, got %v", err)
	}
}

func TestOddsIngest_SnapshotTeamsAreCreatedEvenWhenUnmatched(t *testing.T) {
	f := newOddsFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)

	snapshot := nbaSnapshot(date)
	if _, err := f.svc.UpsertOdds(context.Background(), snapshot); err != nil {
		t.Fatalf("upsert odds failed: %v", err)
	}

	if id, found, _ := f.teams.FindByIdentity(context.Background(), 1, snapshot.HomeTeam); !found || id == 0 {
		t.Fatal("expected snapshot home team created on first sighting")
	}
	if id, found, _ := f.teams.FindByIdentity(context.Background(), 1, snapshot.AwayTeam); !found || id == 0 {
		t.Fatal("expected snapshot away team created on first sighting")
	}
}
