// Package leaderboard answers "who is around this score" queries and records
// new high scores.
package leaderboard

import (
	"sort"
	"strconv"
	"strings"

	"github.com/krishanu7/subway-trader-backend/internal/store"
)

type Entry = store.Entry

// Window is the leaderboard context around a target score.
type Window struct {
	TopScore    *Entry  `json:"topScore"`
	Surrounding []Entry `json:"surrounding"`
}

// Merge builds the surrounding list from the entries above the target
// (ascending, closest first), the requesting player's own entry (may be nil)
// and the entries below the target (descending, closest first).
//
// Entries are concatenated as above-reversed, self, below; only the first
// entry per username is kept; the result is stably sorted by score descending.
func Merge(above []Entry, self *Entry, below []Entry) []Entry {
	candidates := make([]Entry, 0, len(above)+len(below)+1)
	for i := len(above) - 1; i >= 0; i-- {
		candidates = append(candidates, above[i])
	}
	if self != nil {
		candidates = append(candidates, *self)
	}
	candidates = append(candidates, below...)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]Entry, 0, len(candidates))
	for _, e := range candidates {
		if _, dup := seen[e.Username]; dup {
			continue
		}
		seen[e.Username] = struct{}{}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].HighScore > out[j].HighScore })
	return out
}

// ParseTarget reads the optional score filter. Anything that is not an
// integer is treated as absent.
func ParseTarget(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
