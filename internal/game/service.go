package game

import (
	"context"
	"errors"
	"time"

	"github.com/krishanu7/subway-trader-backend/db"
	"github.com/krishanu7/subway-trader-backend/internal/store"
	"go.uber.org/zap"
)

// Snapshots is the part of the persistence gateway the economy needs.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, username string, s db.Snapshot) error
	LoadSnapshot(ctx context.Context, username string) (db.Snapshot, error)
}

// LoadResult is a stored snapshot, or the starting state when IsNew is set.
type LoadResult struct {
	Snapshot db.Snapshot
	IsNew    bool
}

type Service struct {
	snapshots Snapshots
	log       *zap.Logger
	now       func() time.Time
}

func NewService(snapshots Snapshots, log *zap.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		log:       log.Named("game"),
		now:       time.Now,
	}
}

// Save validates and stores the player's economy state.
func (s *Service) Save(ctx context.Context, username string, req SaveRequest) (db.Snapshot, error) {
	snap, err := req.Validate()
	if err != nil {
		return db.Snapshot{}, err
	}
	snap.UpdatedAt = s.now().UTC()
	if err := s.snapshots.SaveSnapshot(ctx, username, snap); err != nil {
		return db.Snapshot{}, err
	}
	s.log.Debug("game saved",
		zap.String("username", username),
		zap.String("station", snap.LastVisitedStation),
		zap.Float64("money", snap.Money),
	)
	return snap, nil
}

// Load returns the saved state, falling back to a fresh game.
func (s *Service) Load(ctx context.Context, username string) (LoadResult, error) {
	snap, err := s.snapshots.LoadSnapshot(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return LoadResult{Snapshot: db.NewSnapshot(s.now()), IsNew: true}, nil
	}
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Snapshot: snap}, nil
}
