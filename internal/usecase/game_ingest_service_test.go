package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/league"
	"github.com/statline/oddsync/internal/domain/team"
	"github.com/statline/oddsync/internal/infrastructure/repository/memory"
)

func intRef(v int) *int { return &v }

func newGameFixture() (*GameIngestService, *memory.GameRepository, *memory.TeamRepository) {
	leagues := memory.NewLeagueRepository(league.CodeNBA, league.CodeNCAAB)
	teams := memory.NewTeamRepository()
	games := memory.NewGameRepository()
	resolver := NewTeamResolverService(teams, nil, nil)
	return NewGameIngestService(leagues, games, resolver, nil), games, teams
}

func dukeUNC(date time.Time) game.Normalized {
	return game.Normalized{
		Identity: game.Identification{
			LeagueCode: league.CodeNCAAB,
			Season:     2025,
			SeasonType: "regular",
			GameDate:   date,
			HomeTeam:   team.Identity{Name: "Duke Blue Devils", Abbreviation: "DUKE"},
			AwayTeam:   team.Identity{Name: "North Carolina Tar Heels", Abbreviation: "UNC"},
		},
		Status: "scheduled",
	}
}

func TestGameIngest_RescrapeUpdatesInPlace(t *testing.T) {
	svc, games, _ := newGameFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)

	first := dukeUNC(date)
	first.Identity.SourceGameKey = "espn-401234"

	firstID, err := svc.UpsertGame(context.Background(), first)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	stored, found, err := games.GetByID(context.Background(), firstID)
	if err != nil || !found {
		t.Fatalf("expected stored game, found=%t err=%v", found, err)
	}
	if stored.ScrapeVersion != 1 {
		t.Fatalf("expected scrape version 1, got %d", stored.ScrapeVersion)
	}
	if stored.SourceGameKey == nil || *stored.SourceGameKey != "espn-401234" {
		t.Fatalf("expected source key espn-401234, got %v", stored.SourceGameKey)
	}

	// Re-scrape with final scores and a different source key.
	second := dukeUNC(date)
	second.Identity.SourceGameKey = "other-key"
	second.Status = "final"
	second.HomeScore = intRef(84)
	second.AwayScore = intRef(78)

	secondID, err := svc.UpsertGame(context.Background(), second)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("expected same game id on re-scrape, got %d and %d", firstID, secondID)
	}

	stored, _, err = games.GetByID(context.Background(), firstID)
	if err != nil {
		t.Fatalf("get after re-scrape failed: %v", err)
	}
	if stored.ScrapeVersion != 2 {
		t.Fatalf("expected scrape version 2 after re-scrape, got %d", stored.ScrapeVersion)
	}
	if stored.Status != "final" || stored.HomeScore == nil || *stored.HomeScore != 84 {
		t.Fatalf("expected updated status and scores, got status=%s home=%v", stored.Status, stored.HomeScore)
	}
	if stored.SourceGameKey == nil || *stored.SourceGameKey != "espn-401234" {
		t.Fatalf("expected original source key preserved, got %v", stored.SourceGameKey)
	}
}

func TestGameIngest_ValidationFailures(t *testing.T) {
	svc, _, _ := newGameFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)

	missingLeague := dukeUNC(date)
	missingLeague.Identity.LeagueCode = ""
	if _, err := svc.UpsertGame(context.Background(), missingLeague); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing league code, got %v", err)
	}

	unknownLeague := dukeUNC(date)
	unknownLeague.Identity.LeagueCode = "XFL"
	if _, err := svc.UpsertGame(context.Background(), unknownLeague); !errors.Is(err, ErrUnknownLeague) {
		t.Fatalf("expected ErrUnknownLeague, got %v", err)
	}

	missingTeam := dukeUNC(date)
	missingTeam.Identity.HomeTeam.Name = ""
	if _, err := svc.UpsertGame(context.Background(), missingTeam); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing team name, got %v", err)
	}
}

func TestGameIngest_PersistsBoxscores(t *testing.T) {
	svc, games, _ := newGameFixture()
	date := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC)

	normalized := dukeUNC(date)
	normalized.TeamBoxscores = []game.TeamBoxscore{
		{Team: team.Identity{Name: "Duke Blue Devils"}, Stats: map[string]float64{"points": 84, "rebounds": 39}},
		{Team: team.Identity{Name: "North Carolina Tar Heels"}, Stats: map[string]float64{"points": 78}},
	}
	normalized.PlayerBoxscores = []game.PlayerBoxscore{
		{Team: team.Identity{Name: "Duke Blue Devils"}, PlayerName: "C. Flagg", Stats: map[string]float64{"points": 28}},
	}

	gameID, err := svc.UpsertGame(context.Background(), normalized)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	teamRows := games.TeamBoxscores(gameID)
	if len(teamRows) != 2 {
		t.Fatalf("expected 2 team boxscore rows, got %d", len(teamRows))
	}
	playerRows := games.PlayerBoxscores(gameID)
	if len(playerRows) != 1 || playerRows[0].PlayerName != "C. Flagg" {
		t.Fatalf("unexpected player boxscore rows: %+v", playerRows)
	}

	stored, _, _ := games.GetByID(context.Background(), gameID)
	if teamRows[0].TeamID != stored.HomeTeamID && teamRows[0].TeamID != stored.AwayTeamID {
		t.Fatalf("boxscore team id %d does not belong to the game", teamRows[0].TeamID)
	}
}
