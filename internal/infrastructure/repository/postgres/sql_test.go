package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"

	qb "github.com/statline/oddsync/internal/platform/querybuilder"
)

func TestIsUndefinedObject(t *testing.T) {
	if !isUndefinedObject(&pq.Error{Code: "42704"}) {
		t.Fatal("expected undefined_object code to be detected")
	}
	if !isUndefinedObject(fmt.Errorf("wrapped: %w", &pq.Error{Code: "42704"})) {
		t.Fatal("expected wrapped undefined_object to be detected")
	}
	if isUndefinedObject(&pq.Error{Code: "23505"}) {
		t.Fatal("unique_violation is not undefined_object")
	}
	if isUndefinedObject(sql.ErrNoRows) {
		t.Fatal("plain errors are not undefined_object")
	}
}

func TestIsUndefinedTable(t *testing.T) {
	if !isUndefinedTable(&pq.Error{Code: "42P01"}) {
		t.Fatal("expected undefined_table code to be detected")
	}
	if !isUndefinedTable(fmt.Errorf("wrapped: %w", &pq.Error{Code: "42P01"})) {
		t.Fatal("expected wrapped undefined_table to be detected")
	}
	if isUndefinedTable(&pq.Error{Code: "42704"}) {
		t.Fatal("undefined_object is not undefined_table")
	}
}

func TestConstraintColumnsQuery(t *testing.T) {
	query, args, err := constraintColumnsQuery("uq_game_identity", "games")
	if err != nil {
		t.Fatalf("build constraint query: %v", err)
	}
	for _, want := range []string{
		"FROM pg_constraint c",
		"c.conname = $1",
		"c.contype = 'u'",
		"c.conrelid = $2::regclass",
		"ORDER BY k.ord",
	} {
		if !strings.Contains(query, want) {
			t.Fatalf("constraint query missing %q: %s", want, query)
		}
	}
	if len(args) != 2 || args[0] != "uq_game_identity" || args[1] != "games" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("").Valid {
		t.Fatal("empty string should map to NULL")
	}
	if got := nullString("x"); !got.Valid || got.String != "x" {
		t.Fatalf("unexpected null string: %+v", got)
	}

	if nullInt(nil).Valid {
		t.Fatal("nil int should map to NULL")
	}
	v := 7
	if got := nullInt(&v); !got.Valid || got.Int64 != 7 {
		t.Fatalf("unexpected null int: %+v", got)
	}
	if intPtr(sql.NullInt64{}) != nil {
		t.Fatal("NULL should round-trip to nil")
	}
	if got := intPtr(sql.NullInt64{Int64: 9, Valid: true}); got == nil || *got != 9 {
		t.Fatalf("unexpected int pointer: %v", got)
	}

	f := 1.5
	if got := nullFloat(&f); !got.Valid || got.Float64 != 1.5 {
		t.Fatalf("unexpected null float: %+v", got)
	}
	if floatPtr(sql.NullFloat64{}) != nil {
		t.Fatal("NULL should round-trip to nil")
	}
}

// The conflict suffixes name schema constraints; this pins the
// generated statements so a builder change cannot silently drop them.
func TestUpsertStatementsNameConstraints(t *testing.T) {
	query, _, err := qb.InsertModel("games", gameInsertRow{}, gameUpsertSuffix)
	if err != nil {
		t.Fatalf("build game upsert: %v", err)
	}
	if !strings.Contains(query, "ON CONFLICT ON CONSTRAINT uq_game_identity") {
		t.Fatalf("game upsert missing constraint clause: %s", query)
	}
	if !strings.Contains(query, "scrape_version = games.scrape_version + 1") {
		t.Fatalf("game upsert missing atomic version bump: %s", query)
	}
	if !strings.Contains(query, "COALESCE(games.source_game_key, EXCLUDED.source_game_key)") {
		t.Fatalf("game upsert missing write-once source key: %s", query)
	}

	query, _, err = qb.InsertModel("game_odds", quoteInsertRow{}, oddsUpsertSuffix)
	if err != nil {
		t.Fatalf("build odds upsert: %v", err)
	}
	if !strings.Contains(query, "ON CONFLICT ON CONSTRAINT uq_odds_quote_identity") {
		t.Fatalf("odds upsert missing constraint clause: %s", query)
	}
}

func TestMarshalHelpersDefaultToEmptyObject(t *testing.T) {
	out, err := marshalExternalIDs(nil)
	if err != nil || string(out) != "{}" {
		t.Fatalf("expected {} for nil map, got %s err=%v", out, err)
	}
	out, err = marshalStats(map[string]float64{})
	if err != nil || string(out) != "{}" {
		t.Fatalf("expected {} for empty stats, got %s err=%v", out, err)
	}
	out, err = marshalExternalIDs(map[string]string{"espn": "401234"})
	if err != nil || string(out) != `{"espn":"401234"}` {
		t.Fatalf("unexpected external ids encoding: %s err=%v", out, err)
	}
}

func TestRequiredConstraintsMatchDomainIdentity(t *testing.T) {
	var wantGames = []string{"league_id", "season", "season_type", "game_date", "home_team_id", "away_team_id"}
	var wantOdds = []string{"game_id", "book", "market_type", "side", "is_closing_line"}

	for _, rc := range requiredConstraints {
		switch rc.name {
		case "uq_game_identity":
			if !equalColumns(rc.columns, wantGames) {
				t.Fatalf("unexpected game identity columns: %v", rc.columns)
			}
		case "uq_odds_quote_identity":
			if !equalColumns(rc.columns, wantOdds) {
				t.Fatalf("unexpected odds identity columns: %v", rc.columns)
			}
		default:
			t.Fatalf("unexpected constraint %s", rc.name)
		}
	}
}
