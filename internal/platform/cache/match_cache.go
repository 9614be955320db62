package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/statline/oddsync/internal/platform/resilience"
)

// Outcome is the tri-state result of a match-cache lookup. Absent and
// NoMatch are distinct on purpose: a negative entry means the match
// tiers already ran for this key and found nothing, so they must not
// run again.
type Outcome int

const (
	OutcomeAbsent Outcome = iota
	OutcomeNoMatch
	OutcomeMatched
)

// Key identifies one (league, calendar day, team pair) resolution. The
// pair is stored low/high so home and away order does not matter.
type Key struct {
	LeagueCode string
	Day        string
	TeamLo     int64
	TeamHi     int64
}

func NewKey(leagueCode string, gameDate time.Time, teamA, teamB int64) Key {
	lo, hi := teamA, teamB
	if lo > hi {
		lo, hi = hi, lo
	}
	return Key{
		LeagueCode: leagueCode,
		Day:        gameDate.UTC().Format("2006-01-02"),
		TeamLo:     lo,
		TeamHi:     hi,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%d|%d", k.LeagueCode, k.Day, k.TeamLo, k.TeamHi)
}

type matchEntry struct {
	key     Key
	gameID  int64
	matched bool
}

type matchResult struct {
	gameID  int64
	matched bool
}

// MatchCache is a fixed-capacity LRU from resolution key to game id or
// an explicit "no match". It is process-local and an optimization
// only: entries are never invalidated by other writers, and staleness
// is bounded by capacity and process lifetime.
type MatchCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[Key]*list.Element
	order    *list.List // front = most recently used
	flight   resilience.Flight[matchResult]
}

const DefaultCapacity = 512

func NewMatchCache(capacity int) *MatchCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MatchCache{
		capacity: capacity,
		entries:  make(map[Key]*list.Element, capacity),
		order:    list.New(),
	}
}

// Lookup returns the cached game id and outcome, refreshing recency on
// hit. The game id is only meaningful when the outcome is
// OutcomeMatched.
func (c *MatchCache) Lookup(key Key) (int64, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return 0, OutcomeAbsent
	}
	c.order.MoveToFront(elem)

	entry := elem.Value.(*matchEntry)
	if !entry.matched {
		return 0, OutcomeNoMatch
	}
	return entry.gameID, OutcomeMatched
}

// Store inserts or overwrites the entry for key and evicts the least
// recently used entry when capacity is exceeded.
func (c *MatchCache) Store(key Key, gameID int64, matched bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*matchEntry)
		entry.gameID = gameID
		entry.matched = matched
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&matchEntry{key: key, gameID: gameID, matched: matched})
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*matchEntry).key)
		}
	}
}

func (c *MatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Resolve runs fn for key unless a cached outcome exists, deduping
// concurrent callers for the same key in-process. A successful fn
// result (matched or not) is cached; errors are returned uncached so a
// transient storage failure does not poison the key.
func (c *MatchCache) Resolve(key Key, fn func() (int64, bool, error)) (int64, bool, error) {
	if gameID, outcome := c.Lookup(key); outcome != OutcomeAbsent {
		return gameID, outcome == OutcomeMatched, nil
	}

	out, err, _ := c.flight.Do(key.String(), func() (matchResult, error) {
		if gameID, outcome := c.Lookup(key); outcome != OutcomeAbsent {
			return matchResult{gameID: gameID, matched: outcome == OutcomeMatched}, nil
		}

		gameID, matched, err := fn()
		if err != nil {
			return matchResult{}, err
		}
		c.Store(key, gameID, matched)
		return matchResult{gameID: gameID, matched: matched}, nil
	})
	if err != nil {
		return 0, false, err
	}

	return out.gameID, out.matched, nil
}
