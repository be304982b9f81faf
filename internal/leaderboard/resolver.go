package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/krishanu7/subway-trader-backend/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrStoreUnavailable is returned when any ranking query fails or times out.
// The resolver never returns a partially computed window.
var ErrStoreUnavailable = errors.New("leaderboard store unavailable")

const (
	defaultWindowSize   = 5
	defaultQueryTimeout = 2 * time.Second
)

// Resolver computes surrounding-score windows. It holds no per-request state
// and is safe for concurrent use.
type Resolver struct {
	ranking      store.Ranking
	windowSize   int
	queryTimeout time.Duration
}

type Option func(*Resolver)

// WithQueryTimeout bounds each individual store query.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

// WithWindowSize sets how many entries are taken on each side of the target.
func WithWindowSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.windowSize = n
		}
	}
}

func NewResolver(ranking store.Ranking, opts ...Option) *Resolver {
	r := &Resolver{
		ranking:      ranking,
		windowSize:   defaultWindowSize,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the leader plus, when target is set, up to windowSize
// entries on each side of it and the requesting player's own entry. An empty
// leaderboard is not an error. Unknown usernames are ignored.
func (r *Resolver) Resolve(ctx context.Context, target *int64, username string) (Window, error) {
	start := time.Now()
	w, err := r.resolve(ctx, target, username)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveResolve(outcome, time.Since(start))
	return w, err
}

func (r *Resolver) resolve(ctx context.Context, target *int64, username string) (Window, error) {
	var (
		top, self    *Entry
		above, below []Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.query(gctx, "top", func(ctx context.Context) (err error) {
			top, err = r.ranking.TopOne(ctx)
			return err
		})
	})

	if target != nil {
		t := *target
		g.Go(func() error {
			return r.query(gctx, "above", func(ctx context.Context) (err error) {
				above, err = r.ranking.Above(ctx, t, r.windowSize)
				return err
			})
		})
		g.Go(func() error {
			return r.query(gctx, "below", func(ctx context.Context) (err error) {
				below, err = r.ranking.Below(ctx, t, r.windowSize)
				return err
			})
		})
		if username != "" {
			g.Go(func() error {
				return r.query(gctx, "self", func(ctx context.Context) (err error) {
					self, err = r.ranking.ByUsername(ctx, username)
					return err
				})
			})
		}
	}

	if err := g.Wait(); err != nil {
		return Window{}, err
	}

	w := Window{TopScore: top, Surrounding: []Entry{}}
	if target != nil {
		w.Surrounding = Merge(above, self, below)
	}
	return w, nil
}

func (r *Resolver) query(ctx context.Context, name string, fn func(context.Context) error) error {
	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	if err := fn(qctx); err != nil {
		return fmt.Errorf("%w: %s query: %w", ErrStoreUnavailable, name, err)
	}
	return nil
}
