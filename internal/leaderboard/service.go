package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/krishanu7/subway-trader-backend/pkg/metrics"
	"go.uber.org/zap"
)

// ErrInvalidScore rejects negative or out-of-range submissions.
var ErrInvalidScore = errors.New("score must be an integer between 0 and 2^53")

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100

	// MaxScore is the largest score the Redis index holds exactly as a float64.
	MaxScore = 1 << 53
)

// Store is what the leaderboard needs from persistence.
type Store interface {
	store.Ranking
	UpdateHighScore(ctx context.Context, username string, candidate int64) (bool, error)
}

// Update is published whenever a player's high score rises.
type Update struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	HighScore int64     `json:"highScore"`
	At        time.Time `json:"at"`
}

const UpdateTypeHighScore = "high_score"

// Notifier fans high-score updates out to live feed subscribers.
type Notifier interface {
	Publish(ctx context.Context, u Update) error
}

// SubmitResult reports whether the submission became the player's new best.
type SubmitResult struct {
	Updated   bool  `json:"updated"`
	HighScore int64 `json:"highScore"`
}

type Service struct {
	store    Store
	resolver *Resolver
	notifier Notifier
	log      *zap.Logger
}

func NewService(s Store, resolver *Resolver, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		store:    s,
		resolver: resolver,
		notifier: notifier,
		log:      log.Named("leaderboard"),
	}
}

func (s *Service) Window(ctx context.Context, target *int64, username string) (Window, error) {
	return s.resolver.Resolve(ctx, target, username)
}

// Submit records score for username if it beats the stored high score.
func (s *Service) Submit(ctx context.Context, username string, score int64) (SubmitResult, error) {
	if score < 0 || score > MaxScore {
		metrics.RecordScoreSubmission("invalid")
		return SubmitResult{}, ErrInvalidScore
	}

	updated, err := s.store.UpdateHighScore(ctx, username, score)
	if err != nil {
		metrics.RecordScoreSubmission("error")
		if errors.Is(err, store.ErrNotFound) {
			return SubmitResult{}, err
		}
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !updated {
		metrics.RecordScoreSubmission("unchanged")
		res := SubmitResult{HighScore: score}
		if current, err := s.store.ByUsername(ctx, username); err == nil && current != nil {
			res.HighScore = current.HighScore
		}
		return res, nil
	}

	metrics.RecordScoreSubmission("updated")
	s.log.Info("new high score", zap.String("username", username), zap.Int64("score", score))
	if s.notifier != nil {
		u := Update{Type: UpdateTypeHighScore, Username: username, HighScore: score, At: time.Now().UTC()}
		if err := s.notifier.Publish(ctx, u); err != nil {
			s.log.Warn("publish high score failed", zap.String("username", username), zap.Error(err))
		}
	}
	return SubmitResult{Updated: true, HighScore: score}, nil
}

// Top returns the first n leaderboard entries; n is clamped to
// [1, MaxTopLimit] and defaults to DefaultTopLimit.
func (s *Service) Top(ctx context.Context, n int) ([]Entry, error) {
	switch {
	case n <= 0:
		n = DefaultTopLimit
	case n > MaxTopLimit:
		n = MaxTopLimit
	}
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return entries, nil
}
