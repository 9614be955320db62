package odds

import (
	"strings"
	"time"

	"github.com/statline/oddsync/internal/domain/team"
)

// Quote is one persisted odds observation. Natural identity is
// (game_id, book, market_type, side, is_closing_line): a live quote and
// a closing-line quote coexist per side, and later snapshots for the
// same identity overwrite line/price in place.
type Quote struct {
	GameID        int64
	Book          string
	MarketType    string
	Side          string
	Line          *float64
	Price         float64
	IsClosingLine bool
	ObservedAt    time.Time
	SourceKey     string
	RawPayload    []byte
	UpdatedAt     time.Time
}

// Snapshot is one odds observation as produced by the out-of-scope
// feed collaborators. Team identities are whatever the book calls the
// teams, which rarely matches the scraped names exactly.
type Snapshot struct {
	LeagueCode    string        `json:"league_code" validate:"required"`
	GameDate      time.Time     `json:"game_date" validate:"required"`
	HomeTeam      team.Identity `json:"home_team" validate:"required"`
	AwayTeam      team.Identity `json:"away_team" validate:"required"`
	Book          string        `json:"book" validate:"required"`
	MarketType    string        `json:"market_type" validate:"required"`
	Side          string        `json:"side"`
	Line          *float64      `json:"line"`
	Price         float64       `json:"price"`
	IsClosingLine bool          `json:"is_closing_line"`
	ObservedAt    time.Time     `json:"observed_at"`
	SourceKey     string        `json:"source_key"`
	RawPayload    []byte        `json:"raw_payload"`
}

// CanonicalSide maps "no side" (totals markets) to the canonical empty
// representation so the unique index treats all side-less snapshots of
// a market as one row.
func CanonicalSide(side string) string {
	return strings.TrimSpace(side)
}
