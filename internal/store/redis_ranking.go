package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const rankingKey = "leaderboard:scores"

// RedisRanking is a Ranking backed by a Redis sorted set of username →
// high score. Redis orders equal scores by member bytes, so results that are
// cut at a tied score are completed from the full tie group and re-sorted
// into leaderboard order.
type RedisRanking struct {
	rdb redis.Cmdable
	key string
}

func NewRedisRanking(rdb redis.Cmdable) *RedisRanking {
	return &RedisRanking{rdb: rdb, key: rankingKey}
}

// Record raises username's score to score; lower scores are ignored (ZADD GT).
func (r *RedisRanking) Record(ctx context.Context, username string, score int64) error {
	if err := r.rdb.ZAddGT(ctx, r.key, redis.Z{Score: float64(score), Member: username}).Err(); err != nil {
		return redisErr("record", err)
	}
	return nil
}

// Rebuild folds entries into the sorted set, keeping the higher score per
// member. Players are never deleted, so a merge cannot resurrect anything,
// and writes recorded while entries were being read survive.
func (r *RedisRanking) Rebuild(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tmp := r.key + ":rebuild"
	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: float64(e.HighScore), Member: e.Username}
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tmp)
		pipe.ZAdd(ctx, tmp, members...)
		pipe.ZUnionStore(ctx, r.key, &redis.ZStore{Keys: []string{r.key, tmp}, Aggregate: "MAX"})
		pipe.Del(ctx, tmp)
		return nil
	})
	if err != nil {
		return redisErr("rebuild", err)
	}
	return nil
}

func (r *RedisRanking) TopOne(ctx context.Context) (*Entry, error) {
	top, err := r.TopN(ctx, 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return &top[0], nil
}

func (r *RedisRanking) Above(ctx context.Context, target int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	zs, err := r.rdb.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min:   "(" + strconv.FormatInt(target, 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, redisErr("above", err)
	}
	return r.complete(ctx, zs, limit, sortClosestAbove)
}

func (r *RedisRanking) Below(ctx context.Context, target int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	zs, err := r.rdb.ZRevRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(target, 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, redisErr("below", err)
	}
	return r.complete(ctx, zs, limit, SortLeaderboard)
}

func (r *RedisRanking) ByUsername(ctx context.Context, username string) (*Entry, error) {
	score, err := r.rdb.ZScore(ctx, r.key, username).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, redisErr("by username", err)
	}
	return &Entry{Username: username, HighScore: int64(score)}, nil
}

func (r *RedisRanking) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	zs, err := r.rdb.ZRevRangeWithScores(ctx, r.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, redisErr("top", err)
	}
	return r.complete(ctx, zs, n, SortLeaderboard)
}

// Count returns the number of indexed players.
func (r *RedisRanking) Count(ctx context.Context) (int64, error) {
	n, err := r.rdb.ZCard(ctx, r.key).Result()
	if err != nil {
		return 0, redisErr("count", err)
	}
	return n, nil
}

// complete fixes the tie group at the cut-off score of a full page: members
// sharing the last score are re-read in full so order() picks the right ones.
func (r *RedisRanking) complete(ctx context.Context, zs []redis.Z, limit int, order func([]Entry)) ([]Entry, error) {
	entries := make([]Entry, 0, len(zs))
	if len(zs) < limit {
		for _, z := range zs {
			entries = append(entries, toEntry(z))
		}
		order(entries)
		return entries, nil
	}

	edge := zs[len(zs)-1].Score
	for _, z := range zs {
		if z.Score != edge {
			entries = append(entries, toEntry(z))
		}
	}
	bound := strconv.FormatInt(int64(edge), 10)
	ties, err := r.rdb.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{Min: bound, Max: bound}).Result()
	if err != nil {
		return nil, redisErr("tie group", err)
	}
	for _, z := range ties {
		entries = append(entries, toEntry(z))
	}
	order(entries)
	return truncate(entries, limit), nil
}

func toEntry(z redis.Z) Entry {
	return Entry{Username: fmt.Sprint(z.Member), HighScore: int64(z.Score)}
}

func redisErr(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %w", ErrUnavailable, op, err)
}
