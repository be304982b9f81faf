package store

import (
	"context"

	"github.com/krishanu7/subway-trader-backend/db"
	"go.uber.org/zap"
)

// Indexed serves ranking reads from a Redis index and mirrors score writes
// into it. The primary gateway stays the source of truth: a failed mirror
// write is logged and repaired by the next Reindex.
type Indexed struct {
	Gateway
	index *RedisRanking
	log   *zap.Logger
}

func NewIndexed(primary Gateway, index *RedisRanking, log *zap.Logger) *Indexed {
	return &Indexed{Gateway: primary, index: index, log: log.Named("ranking_index")}
}

func (s *Indexed) CreatePlayer(ctx context.Context, username, passwordHash string) (db.Player, error) {
	p, err := s.Gateway.CreatePlayer(ctx, username, passwordHash)
	if err != nil {
		return p, err
	}
	s.mirror(ctx, username, p.HighScore)
	return p, nil
}

func (s *Indexed) UpdateHighScore(ctx context.Context, username string, candidate int64) (bool, error) {
	updated, err := s.Gateway.UpdateHighScore(ctx, username, candidate)
	if err != nil || !updated {
		return updated, err
	}
	s.mirror(ctx, username, candidate)
	return true, nil
}

func (s *Indexed) mirror(ctx context.Context, username string, score int64) {
	if err := s.index.Record(ctx, username, score); err != nil {
		s.log.Warn("mirror score failed", zap.String("username", username), zap.Int64("score", score), zap.Error(err))
	}
}

func (s *Indexed) TopOne(ctx context.Context) (*Entry, error) { return s.index.TopOne(ctx) }

func (s *Indexed) Above(ctx context.Context, target int64, limit int) ([]Entry, error) {
	return s.index.Above(ctx, target, limit)
}

func (s *Indexed) Below(ctx context.Context, target int64, limit int) ([]Entry, error) {
	return s.index.Below(ctx, target, limit)
}

func (s *Indexed) ByUsername(ctx context.Context, username string) (*Entry, error) {
	return s.index.ByUsername(ctx, username)
}

func (s *Indexed) TopN(ctx context.Context, n int) ([]Entry, error) { return s.index.TopN(ctx, n) }

// Index exposes the Redis index for reindexing.
func (s *Indexed) Index() *RedisRanking { return s.index }

// Primary returns the wrapped source-of-truth gateway.
func (s *Indexed) Primary() Gateway { return s.Gateway }
