package store

import (
	"context"
	"fmt"
)

// Reindex rebuilds the ranking index from every score in the primary gateway
// and returns how many entries were written.
func Reindex(ctx context.Context, primary Gateway, index *RedisRanking) (int, error) {
	entries, err := primary.AllScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("read scores: %w", err)
	}
	if err := index.Rebuild(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
