package feedfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/statline/oddsync/internal/domain/game"
	"github.com/statline/oddsync/internal/domain/odds"
	"github.com/statline/oddsync/internal/platform/logging"
)

const (
	gamesFileName = "games.json"
	oddsFileName  = "odds.json"
)

// Loader reads scraped feed drops from disk. Layout is one directory
// per league under the feed root, each holding a games.json and an
// odds.json array. A missing file means the league has no drop yet; a
// malformed item is skipped, never fatal for the batch.
type Loader struct {
	dir    string
	logger *logging.Logger
}

func NewLoader(dir string, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{dir: dir, logger: logger}
}

// LoadGames returns the normalized games dropped for the league.
func (l *Loader) LoadGames(leagueCode string) ([]game.Normalized, error) {
	items, err := l.readItems(leagueCode, gamesFileName)
	if err != nil || items == nil {
		return nil, err
	}

	out := make([]game.Normalized, 0, len(items))
	for i, raw := range items {
		var normalized game.Normalized
		if err := sonic.Unmarshal(raw, &normalized); err != nil {
			l.logger.Warn("skipping malformed game item",
				"league", leagueCode,
				"index", i,
				"error", err,
			)
			continue
		}
		out = append(out, normalized)
	}
	return out, nil
}

// LoadOddsSnapshots returns the odds snapshots dropped for the league.
// Each snapshot keeps its compacted source item as the raw payload
// unless the feed already set one.
func (l *Loader) LoadOddsSnapshots(leagueCode string) ([]odds.Snapshot, error) {
	items, err := l.readItems(leagueCode, oddsFileName)
	if err != nil || items == nil {
		return nil, err
	}

	out := make([]odds.Snapshot, 0, len(items))
	for i, raw := range items {
		var snapshot odds.Snapshot
		if err := sonic.Unmarshal(raw, &snapshot); err != nil {
			l.logger.Warn("skipping malformed odds item",
				"league", leagueCode,
				"index", i,
				"error", err,
			)
			continue
		}
		if len(snapshot.RawPayload) == 0 {
			snapshot.RawPayload = compactPayload(raw)
		}
		out = append(out, snapshot)
	}
	return out, nil
}

func (l *Loader) readItems(leagueCode, fileName string) ([]json.RawMessage, error) {
	path := filepath.Join(l.dir, leagueCode, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("no feed file for league", "league", leagueCode, "path", path)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read feed file %s", path)
	}

	var items []json.RawMessage
	if err := sonic.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrapf(err, "decode feed file %s", path)
	}
	return items, nil
}

// compactPayload strips insignificant whitespace so the stored payload
// is stable regardless of how the drop was pretty-printed. The scratch
// space comes from the pool; the result is always a fresh copy.
func compactPayload(raw []byte) []byte {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	buf := bytes.NewBuffer(bb.B[:0])
	if err := json.Compact(buf, raw); err != nil {
		return append([]byte(nil), raw...)
	}
	out := append([]byte(nil), buf.Bytes()...)
	bb.B = buf.Bytes()
	return out
}
