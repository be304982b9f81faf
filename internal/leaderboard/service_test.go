package leaderboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []Update
	err     error
}

func (n *recordingNotifier) Publish(_ context.Context, u Update) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, u)
	return n.err
}

func newService(t *testing.T, n Notifier, entries ...Entry) (*Service, *store.Memory) {
	t.Helper()
	m := newStore(t, entries...)
	return NewService(m, NewResolver(m), n, zap.NewNop()), m
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	svc, _ := newService(t, n, Entry{Username: "rider", HighScore: 0})

	res, err := svc.Submit(ctx, "rider", 120)
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{Updated: true, HighScore: 120}, res)

	res, err = svc.Submit(ctx, "rider", 80)
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{Updated: false, HighScore: 120}, res)

	require.Len(t, n.updates, 1)
	assert.Equal(t, UpdateTypeHighScore, n.updates[0].Type)
	assert.Equal(t, "rider", n.updates[0].Username)
	assert.Equal(t, int64(120), n.updates[0].HighScore)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newService(t, nil, Entry{Username: "rider", HighScore: 0})

	_, err := svc.Submit(context.Background(), "rider", -1)
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = svc.Submit(context.Background(), "rider", MaxScore+1)
	assert.ErrorIs(t, err, ErrInvalidScore)

	res, err := svc.Submit(context.Background(), "rider", MaxScore)
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{Updated: true, HighScore: MaxScore}, res)

	_, err = svc.Submit(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmit_NotifierFailureDoesNotFailSubmission(t *testing.T) {
	n := &recordingNotifier{err: errors.New("redis down")}
	svc, _ := newService(t, n, Entry{Username: "rider", HighScore: 0})

	res, err := svc.Submit(context.Background(), "rider", 5)
	require.NoError(t, err)
	assert.True(t, res.Updated)
}

func TestSubmit_ConcurrentSubmissionsKeepTheGreater(t *testing.T) {
	for i := 0; i < 25; i++ {
		svc, m := newService(t, nil, Entry{Username: "fresh", HighScore: 0})

		var wg sync.WaitGroup
		for _, score := range []int64{50, 60} {
			wg.Add(1)
			go func(score int64) {
				defer wg.Done()
				_, err := svc.Submit(context.Background(), "fresh", score)
				assert.NoError(t, err)
			}(score)
		}
		wg.Wait()

		e, err := m.ByUsername(context.Background(), "fresh")
		require.NoError(t, err)
		assert.Equal(t, int64(60), e.HighScore)
	}
}

func TestTop(t *testing.T) {
	svc, _ := newService(t, nil, ladder...)

	top, err := svc.Top(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Username: "A", HighScore: 100}, {Username: "B", HighScore: 90}, {Username: "C", HighScore: 80}}, top)

	top, err = svc.Top(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, top, len(ladder))

	failing := NewService(failingRanking{err: errors.New("down")}.asStore(), nil, nil, zap.NewNop())
	_, err = failing.Top(context.Background(), 5)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

type failingStore struct{ failingRanking }

func (f failingStore) UpdateHighScore(ctx context.Context, _ string, _ int64) (bool, error) {
	return false, f.wait(ctx)
}

func (f failingRanking) asStore() Store { return failingStore{f} }
