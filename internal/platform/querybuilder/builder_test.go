package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "game_date", "home_team_id", "away_team_id").
		From("games").
		Where(
			Eq("league_id", int64(2)),
			Expr("game_date BETWEEN ? AND ?", "2025-02-01", "2025-02-03"),
		).
		OrderBy("game_date", "id").
		Limit(200).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, game_date, home_team_id, away_team_id FROM games" +
		" WHERE league_id = $1 AND game_date BETWEEN $2 AND $3" +
		" ORDER BY game_date, id LIMIT 200"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != int64(2) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_EqLiteral(t *testing.T) {
	query, args, err := Select("a.attname").
		From("pg_constraint c").
		Where(Eq("c.conname", "uq_game_identity"), EqLiteral("c.contype", "u")).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT a.attname FROM pg_constraint c WHERE c.conname = $1 AND c.contype = 'u'"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 {
		t.Fatalf("literal comparand must not bind a parameter: %+v", args)
	}
}

func TestEqLiteralQuotesEmbeddedQuote(t *testing.T) {
	query, _, err := Select("id").
		From("teams").
		Where(EqLiteral("name", "St. John's (NY)")).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM teams WHERE name = 'St. John''s (NY)'"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
}

func TestInCondition(t *testing.T) {
	query, args, err := Select("id", "name").
		From("teams").
		Where(In("id", []any{int64(3), int64(7)})).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	wantQuery := "SELECT id, name FROM teams WHERE id IN ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}

	query, args, err = Select("id").From("teams").Where(In("id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build empty-in query: %v", err)
	}
	if query != "SELECT id FROM teams WHERE 1=0" || len(args) != 0 {
		t.Fatalf("empty IN must match nothing: %s args=%+v", query, args)
	}
}

func TestInsertBuilder_MultiRowWithSuffix(t *testing.T) {
	query, args, err := InsertInto("game_team_boxscores").
		Columns("game_id", "team_id", "stats").
		Values(int64(10), int64(1), "{}").
		Values(int64(10), int64(2), "{}").
		Suffix("ON CONFLICT (game_id, team_id) DO UPDATE SET stats = EXCLUDED.stats").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO game_team_boxscores (game_id, team_id, stats)" +
		" VALUES ($1, $2, $3), ($4, $5, $6)" +
		" ON CONFLICT (game_id, team_id) DO UPDATE SET stats = EXCLUDED.stats"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 6 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowArityMismatch(t *testing.T) {
	_, _, err := InsertInto("teams").
		Columns("league_id", "name").
		Values(int64(1)).
		ToSQL()
	if err == nil {
		t.Fatal("expected arity mismatch error")
	}
}

func TestInsertModel(t *testing.T) {
	row := struct {
		LeagueID int64  `db:"league_id"`
		Name     string `db:"name"`
		Abbr     string `db:"abbreviation"`
		Ignored  string `db:"-"`
		NoTag    string
	}{LeagueID: 2, Name: "Duke", Abbr: "DUKE", Ignored: "x", NoTag: "y"}

	query, args, err := InsertModel("teams", row, "RETURNING id")
	if err != nil {
		t.Fatalf("build model insert: %v", err)
	}

	wantQuery := "INSERT INTO teams (league_id, name, abbreviation) VALUES ($1, $2, $3) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[1] != "Duke" {
		t.Fatalf("unexpected args: %+v", args)
	}
}
