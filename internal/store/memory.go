package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krishanu7/subway-trader-backend/db"
)

// Memory keeps everything in process. It is the default backend for local
// development and the base of the File backend.
type Memory struct {
	mu        sync.RWMutex
	players   map[string]*db.Player
	snapshots map[string]db.Snapshot
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		players:   make(map[string]*db.Player),
		snapshots: make(map[string]db.Snapshot),
		now:       time.Now,
	}
}

func (m *Memory) GetPlayer(ctx context.Context, username string) (db.Player, error) {
	if err := ctx.Err(); err != nil {
		return db.Player{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[username]
	if !ok {
		return db.Player{}, ErrNotFound
	}
	return *p, nil
}

func (m *Memory) CreatePlayer(ctx context.Context, username, passwordHash string) (db.Player, error) {
	if err := ctx.Err(); err != nil {
		return db.Player{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[username]; exists {
		return db.Player{}, ErrUsernameTaken
	}
	now := m.now().UTC()
	p := &db.Player{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.players[username] = p
	return *p, nil
}

func (m *Memory) UpdateHighScore(ctx context.Context, username string, candidate int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[username]
	if !ok {
		return false, ErrNotFound
	}
	if candidate <= p.HighScore {
		return false, nil
	}
	p.HighScore = candidate
	p.UpdatedAt = m.now().UTC()
	return true, nil
}

func (m *Memory) SaveSnapshot(ctx context.Context, username string, s db.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[username]; !ok {
		return ErrNotFound
	}
	s = s.Clone()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = m.now().UTC()
	}
	m.snapshots[username] = s
	return nil
}

func (m *Memory) LoadSnapshot(ctx context.Context, username string) (db.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return db.Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[username]
	if !ok {
		return db.Snapshot{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) TopOne(ctx context.Context) (*Entry, error) {
	top, err := m.TopN(ctx, 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return &top[0], nil
}

func (m *Memory) Above(ctx context.Context, target int64, limit int) ([]Entry, error) {
	entries, err := m.filter(ctx, func(e Entry) bool { return e.HighScore > target })
	if err != nil {
		return nil, err
	}
	sortClosestAbove(entries)
	return truncate(entries, limit), nil
}

func (m *Memory) Below(ctx context.Context, target int64, limit int) ([]Entry, error) {
	entries, err := m.filter(ctx, func(e Entry) bool { return e.HighScore < target })
	if err != nil {
		return nil, err
	}
	SortLeaderboard(entries)
	return truncate(entries, limit), nil
}

func (m *Memory) ByUsername(ctx context.Context, username string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[username]
	if !ok {
		return nil, nil
	}
	return &Entry{Username: p.Username, HighScore: p.HighScore}, nil
}

func (m *Memory) TopN(ctx context.Context, n int) ([]Entry, error) {
	entries, err := m.AllScores(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(entries, n), nil
}

func (m *Memory) AllScores(ctx context.Context) ([]Entry, error) {
	entries, err := m.filter(ctx, func(Entry) bool { return true })
	if err != nil {
		return nil, err
	}
	SortLeaderboard(entries)
	return entries, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) filter(ctx context.Context, keep func(Entry) bool) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.players))
	for _, p := range m.players {
		e := Entry{Username: p.Username, HighScore: p.HighScore}
		if keep(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// state copies the full contents for serialisation.
func (m *Memory) state() fileState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := fileState{
		Players:   make([]db.Player, 0, len(m.players)),
		Snapshots: make(map[string]db.Snapshot, len(m.snapshots)),
	}
	for _, p := range m.players {
		st.Players = append(st.Players, *p)
	}
	for name, s := range m.snapshots {
		st.Snapshots[name] = s.Clone()
	}
	return st
}

// restore replaces the full contents, used when loading the data file and
// when a failed write is rolled back.
func (m *Memory) restore(st fileState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.players = make(map[string]*db.Player, len(st.Players))
	for i := range st.Players {
		p := st.Players[i]
		m.players[p.Username] = &p
	}
	m.snapshots = make(map[string]db.Snapshot, len(st.Snapshots))
	for name, s := range st.Snapshots {
		m.snapshots[name] = s.Clone()
	}
}
