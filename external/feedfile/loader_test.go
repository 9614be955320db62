package feedfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFeed(t *testing.T, dir, league, name, content string) {
	t.Helper()
	leagueDir := filepath.Join(dir, league)
	require.NoError(t, os.MkdirAll(leagueDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(leagueDir, name), []byte(content), 0o644))
}

func TestLoader_LoadGames(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "NBA", "games.json", `[
		{
			"identity": {
				"league_code": "NBA",
				"season": 2025,
				"season_type": "regular",
				"game_date": "2025-02-01T19:00:00Z",
				"home_team": {"name": "Boston Celtics"},
				"away_team": {"name": "New York Knicks"}
			},
			"status": "scheduled"
		},
		"not an object",
		{
			"identity": {
				"league_code": "NBA",
				"season": 2025,
				"season_type": "regular",
				"game_date": "2025-02-02T19:30:00Z",
				"home_team": {"name": "Miami Heat"},
				"away_team": {"name": "Chicago Bulls"}
			},
			"home_score": 101,
			"away_score": 94,
			"status": "final"
		}
	]`)

	loader := NewLoader(dir, nil)
	games, err := loader.LoadGames("NBA")
	require.NoError(t, err)
	require.Len(t, games, 2, "malformed item should be skipped, not fatal")

	require.Equal(t, "Boston Celtics", games[0].Identity.HomeTeam.Name)
	require.Equal(t, "final", games[1].Status)
	require.NotNil(t, games[1].HomeScore)
	require.Equal(t, 101, *games[1].HomeScore)
}

func TestLoader_LoadOddsSnapshotsKeepsCompactPayload(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "NBA", "odds.json", `[
		{
			"league_code": "NBA",
			"game_date": "2025-02-01T00:00:00Z",
			"home_team": { "name": "Boston  Celtics" },
			"away_team": { "name": "New York Knicks" },
			"book": "pinnacle",
			"market_type": "spread",
			"side": "home",
			"line": -6.5,
			"price": -110
		}
	]`)

	loader := NewLoader(dir, nil)
	snapshots, err := loader.LoadOddsSnapshots("NBA")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snap := snapshots[0]
	require.Equal(t, "pinnacle", snap.Book)
	require.NotNil(t, snap.Line)
	require.Equal(t, -6.5, *snap.Line)

	payload := string(snap.RawPayload)
	require.NotContains(t, payload, "\n", "payload should be compacted")
	require.NotContains(t, payload, "\": ", "whitespace outside strings should be stripped")
	require.Contains(t, payload, `"Boston  Celtics"`, "whitespace inside strings must survive")
}

func TestLoader_MissingFileMeansNoDrop(t *testing.T) {
	loader := NewLoader(t.TempDir(), nil)

	games, err := loader.LoadGames("NHL")
	require.NoError(t, err)
	require.Nil(t, games)

	snapshots, err := loader.LoadOddsSnapshots("NHL")
	require.NoError(t, err)
	require.Nil(t, snapshots)
}

func TestLoader_MalformedTopLevelIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "MLB", "games.json", `{"not": "an array"}`)

	loader := NewLoader(dir, nil)
	_, err := loader.LoadGames("MLB")
	require.Error(t, err)
}
