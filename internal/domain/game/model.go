package game

import (
	"time"

	"github.com/statline/oddsync/internal/domain/team"
)

// Game is a persisted fixture. Natural identity is (league_id, season,
// season_type, game_date, home_team_id, away_team_id); rows are never
// deleted and every re-scrape bumps ScrapeVersion by one.
type Game struct {
	ID            int64
	LeagueID      int64
	Season        int
	SeasonType    string
	GameDate      time.Time
	HomeTeamID    int64
	AwayTeamID    int64
	HomeScore     *int
	AwayScore     *int
	Status        string
	Venue         string
	SourceGameKey *string
	ScrapeVersion int
	LastScrapedAt time.Time
	UpdatedAt     time.Time
	ExternalIDs   map[string]string
}

// Identification carries the natural-identity fields of a scraped game
// plus the source's own key for it. SourceGameKey is write-once at the
// storage layer: once set it is never overwritten.
type Identification struct {
	LeagueCode    string        `json:"league_code" validate:"required"`
	Season        int           `json:"season" validate:"required"`
	SeasonType    string        `json:"season_type" validate:"required"`
	GameDate      time.Time     `json:"game_date" validate:"required"`
	HomeTeam      team.Identity `json:"home_team" validate:"required"`
	AwayTeam      team.Identity `json:"away_team" validate:"required"`
	SourceGameKey string        `json:"source_game_key"`
}

// Normalized is a scraped game as produced by the out-of-scope
// scraper collaborators.
type Normalized struct {
	Identity        Identification    `json:"identity" validate:"required"`
	Status          string            `json:"status"`
	HomeScore       *int              `json:"home_score"`
	AwayScore       *int              `json:"away_score"`
	Venue           string            `json:"venue"`
	TeamBoxscores   []TeamBoxscore    `json:"team_boxscores"`
	PlayerBoxscores []PlayerBoxscore  `json:"player_boxscores"`
	ExternalIDs     map[string]string `json:"external_ids"`
}

type TeamBoxscore struct {
	Team  team.Identity      `json:"team" validate:"required"`
	Stats map[string]float64 `json:"stats"`
}

type PlayerBoxscore struct {
	Team       team.Identity      `json:"team" validate:"required"`
	PlayerName string             `json:"player_name" validate:"required"`
	Stats      map[string]float64 `json:"stats"`
}

// Window bounds every match-lookup query; the matcher never scans a
// league's games without one.
type Window struct {
	Start time.Time
	End   time.Time
}

// Candidate is the slim projection the odds matcher scans when the
// exact team-id tier fails.
type Candidate struct {
	ID         int64
	GameDate   time.Time
	HomeTeamID int64
	AwayTeamID int64
}

// UpsertParams is the fully-resolved row handed to the storage layer.
type UpsertParams struct {
	LeagueID      int64
	Season        int
	SeasonType    string
	GameDate      time.Time
	HomeTeamID    int64
	AwayTeamID    int64
	HomeScore     *int
	AwayScore     *int
	Status        string
	Venue         string
	SourceGameKey string
	ExternalIDs   map[string]string
}

// TeamBoxscoreRow and PlayerBoxscoreRow are boxscore entries with the
// team identity already resolved to a persisted id.
type TeamBoxscoreRow struct {
	TeamID int64
	Stats  map[string]float64
}

type PlayerBoxscoreRow struct {
	TeamID     int64
	PlayerName string
	Stats      map[string]float64
}
