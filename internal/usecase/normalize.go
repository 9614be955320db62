package usecase

import (
	"strings"

	"github.com/statline/oddsync/internal/domain/league"
)

// canonicalNameOverrides maps odds-feed team names to the names the
// scraper persists. Kept tiny on purpose: only unavoidable canonical
// differences belong here, everything else is handled by the tolerant
// matching tier.
var canonicalNameOverrides = map[string]map[string]string{
	league.CodeNCAAB: {
		"St. John's Red Storm": "St. John's (NY)",
		"St John's Red Storm":  "St. John's (NY)",
		"St Johns Red Storm":   "St. John's (NY)",
	},
}

// tolerantStopwords are dropped from NCAAB names before comparison.
// Feed names carry institutional filler ("University of ...") that the
// scraped names omit, and vice versa.
var tolerantStopwords = map[string]struct{}{
	"university": {},
	"univ":       {},
	"college":    {},
	"the":        {},
	"of":         {},
	"at":         {},
}

// CanonicalTeamName returns the league-specific canonical form of a
// source-supplied team name. For most names this is just the trimmed
// input.
func CanonicalTeamName(leagueCode, name string) string {
	name = strings.TrimSpace(name)
	if overrides, ok := canonicalNameOverrides[leagueCode]; ok {
		if mapped, ok := overrides[name]; ok {
			return mapped
		}
	}
	return name
}

// normalizeTolerantName lower-cases, strips punctuation and removes
// stopwords, collapsing the rest to single-space-separated tokens.
func normalizeTolerantName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, token := range fields {
		if _, stop := tolerantStopwords[token]; stop {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

func tokenSet(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range strings.Fields(normalized) {
		out[token] = struct{}{}
	}
	return out
}

// tolerantNamesMatch applies the tolerant comparison ladder between a
// snapshot name and a persisted name, both already normalized:
// equality, then substring containment in either direction, then a
// token-overlap fallback. snapshotNorm is the canonical (override-
// mapped) form and drives every rung; altNorm is the raw feed form and
// participates in the equality rung only. The substring step runs
// before the token fallback on purpose; see the matcher tests for the
// known over-match it allows on short names.
func tolerantNamesMatch(snapshotNorm, altNorm, storedNorm string) bool {
	if storedNorm == "" || snapshotNorm == "" {
		return false
	}
	if storedNorm == snapshotNorm || storedNorm == altNorm {
		return true
	}
	if strings.Contains(storedNorm, snapshotNorm) || strings.Contains(snapshotNorm, storedNorm) {
		return true
	}

	snapTokens := tokenSet(snapshotNorm)
	storedTokens := tokenSet(storedNorm)
	overlap := 0
	for token := range snapTokens {
		if _, ok := storedTokens[token]; ok {
			overlap++
		}
	}

	threshold := 2
	if min(len(snapTokens), len(storedTokens)) <= 2 {
		threshold = 1
	}
	if overlap >= threshold {
		return true
	}
	return isSubset(snapTokens, storedTokens) || isSubset(storedTokens, snapTokens)
}

func isSubset(a, b map[string]struct{}) bool {
	if len(a) == 0 {
		return false
	}
	for token := range a {
		if _, ok := b[token]; !ok {
			return false
		}
	}
	return true
}
