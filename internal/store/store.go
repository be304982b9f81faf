// Package store persists players, their high scores and economy snapshots,
// and answers the ordered score queries the leaderboard is built from.
//
// Every backend orders the leaderboard by high score descending, then by
// username ascending. Above and Below return the entries closest to the
// target first.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/krishanu7/subway-trader-backend/db"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already exists")
	// ErrUnavailable wraps every backend failure (I/O, connectivity, timeouts).
	ErrUnavailable = errors.New("store unavailable")
)

// Entry is the leaderboard projection of a player.
type Entry struct {
	Username  string `json:"username"`
	HighScore int64  `json:"highScore"`
}

// Ranking answers ordered score queries. Optional results are nil when absent.
type Ranking interface {
	// TopOne returns the leader; ties go to the smallest username.
	TopOne(ctx context.Context) (*Entry, error)
	// Above returns up to limit entries scoring strictly more than target,
	// ascending (closest to target first).
	Above(ctx context.Context, target int64, limit int) ([]Entry, error)
	// Below returns up to limit entries scoring strictly less than target,
	// descending (closest to target first).
	Below(ctx context.Context, target int64, limit int) ([]Entry, error)
	ByUsername(ctx context.Context, username string) (*Entry, error)
	// TopN returns the first n entries in leaderboard order.
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// Gateway is the persistence boundary shared by the memory, file and
// postgres backends.
type Gateway interface {
	Ranking

	// GetPlayer returns ErrNotFound for unknown usernames.
	GetPlayer(ctx context.Context, username string) (db.Player, error)
	// CreatePlayer stores a new player with a zero high score. Returns
	// ErrUsernameTaken when the username exists.
	CreatePlayer(ctx context.Context, username, passwordHash string) (db.Player, error)
	// UpdateHighScore stores candidate only if it is strictly greater than the
	// current high score; the check and write are atomic.
	UpdateHighScore(ctx context.Context, username string, candidate int64) (bool, error)

	SaveSnapshot(ctx context.Context, username string, s db.Snapshot) error
	// LoadSnapshot returns ErrNotFound when the player never saved.
	LoadSnapshot(ctx context.Context, username string) (db.Snapshot, error)

	// AllScores lists every player's entry, in leaderboard order.
	AllScores(ctx context.Context) ([]Entry, error)
	Close() error
}

// Ranks reports whether a sorts before b on the leaderboard.
func Ranks(a, b Entry) bool {
	if a.HighScore != b.HighScore {
		return a.HighScore > b.HighScore
	}
	return a.Username < b.Username
}

// SortLeaderboard sorts entries in leaderboard order.
func SortLeaderboard(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return Ranks(entries[i], entries[j]) })
}

// sortClosestAbove orders entries above a target closest first: the reverse
// of leaderboard order.
func sortClosestAbove(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return Ranks(entries[j], entries[i]) })
}

func truncate(entries []Entry, limit int) []Entry {
	if limit < 0 {
		limit = 0
	}
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
