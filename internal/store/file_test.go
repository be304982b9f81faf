package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/krishanu7/subway-trader-backend/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "players.json")

	f, err := OpenFile(path)
	require.NoError(t, err)
	seed(t, f, []Entry{{"alice", 120}, {"bob", 80}})
	require.NoError(t, f.SaveSnapshot(ctx, "alice", db.Snapshot{
		Money:              42,
		Inventory:          db.Inventory{"umbrella": 1},
		ItemCosts:          db.Inventory{"umbrella": 15},
		LastVisitedStation: "Bloor-Yonge",
		CurrentTime:        time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC),
	}))

	reopened, err := OpenFile(path)
	require.NoError(t, err)

	all, err := reopened.AllScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"alice", 120}, {"bob", 80}}, all)

	snap, err := reopened.LoadSnapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Bloor-Yonge", snap.LastVisitedStation)
	assert.Equal(t, db.Inventory{"umbrella": 1}, snap.Inventory)

	p, err := reopened.GetPlayer(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "hash-bob", p.PasswordHash)
}

func TestFile_UnchangedScoreDoesNotRewrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "players.json")
	f, err := OpenFile(path)
	require.NoError(t, err)
	seed(t, f, []Entry{{"alice", 50}})

	before, err := os.Stat(path)
	require.NoError(t, err)

	updated, err := f.UpdateHighScore(ctx, "alice", 20)
	require.NoError(t, err)
	assert.False(t, updated)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestFile_FailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	f, err := OpenFile(filepath.Join(dir, "players.json"))
	require.NoError(t, err)
	seed(t, f, []Entry{{"alice", 10}})

	require.NoError(t, os.RemoveAll(dir))

	_, err = f.CreatePlayer(ctx, "bob", "hash")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = f.GetPlayer(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.UpdateHighScore(ctx, "alice", 99)
	assert.ErrorIs(t, err, ErrUnavailable)
	p, err := f.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.HighScore)
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenFile(path)
	assert.Error(t, err)
}
