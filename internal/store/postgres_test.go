package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/krishanu7/subway-trader-backend/db"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return NewPostgres(conn), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestPostgres_CreatePlayer(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(q("INSERT INTO players (id, username, password_hash)")).
		WithArgs(sqlmock.AnyArg(), "alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "high_score", "created_at", "updated_at"}).
			AddRow(id.String(), "alice", "hash", 0, now, now))

	p, err := s.CreatePlayer(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "alice", p.Username)

	mock.ExpectQuery(q("INSERT INTO players")).
		WithArgs(sqlmock.AnyArg(), "alice", "hash").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "players_username_key"})

	_, err = s.CreatePlayer(ctx, "alice", "hash")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestPostgres_UpdateHighScore(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)
	update := q("UPDATE players SET high_score = $2, updated_at = now() WHERE username = $1 AND high_score < $2")

	mock.ExpectExec(update).WithArgs("alice", int64(60)).WillReturnResult(sqlmock.NewResult(0, 1))
	updated, err := s.UpdateHighScore(ctx, "alice", 60)
	require.NoError(t, err)
	assert.True(t, updated)

	mock.ExpectExec(update).WithArgs("alice", int64(50)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM players WHERE username = $1")).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	updated, err = s.UpdateHighScore(ctx, "alice", 50)
	require.NoError(t, err)
	assert.False(t, updated)

	mock.ExpectExec(update).WithArgs("ghost", int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM players WHERE username = $1")).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"one"}))
	_, err = s.UpdateHighScore(ctx, "ghost", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_WindowQueries(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(q("WHERE high_score > $1 ORDER BY high_score ASC, username DESC LIMIT $2")).
		WithArgs(int64(70), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "high_score"}).AddRow("C", 80).AddRow("B", 90))
	above, err := s.Above(ctx, 70, 5)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"C", 80}, {"B", 90}}, above)

	mock.ExpectQuery(q("WHERE high_score < $1 ORDER BY high_score DESC, username ASC LIMIT $2")).
		WithArgs(int64(70), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "high_score"}))
	below, err := s.Below(ctx, 70, 5)
	require.NoError(t, err)
	assert.Empty(t, below)

	mock.ExpectQuery(q("ORDER BY high_score DESC, username ASC LIMIT $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "high_score"}).AddRow("A", 100))
	top, err := s.TopOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Entry{"A", 100}, top)

	mock.ExpectQuery(q("SELECT username, high_score FROM players WHERE username = $1")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"username", "high_score"}))
	self, err := s.ByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, self)
}

func TestPostgres_QueryFailureIsUnavailable(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(q("WHERE high_score > $1")).WillReturnError(errors.New("connection refused"))

	_, err := s.Above(context.Background(), 10, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPostgres_Snapshots(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(q("SELECT snapshot, updated_at FROM players WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot", "updated_at"}).AddRow(nil, time.Now()))
	_, err := s.LoadSnapshot(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	doc := []byte(`{"money":900,"inventory":{"tea":2},"itemCosts":{"tea":4},"lastVisitedStation":"Union","currentTime":"2024-02-01T22:00:00Z"}`)
	mock.ExpectQuery(q("SELECT snapshot, updated_at FROM players WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot", "updated_at"}).AddRow(doc, time.Now()))
	snap, err := s.LoadSnapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 900.0, snap.Money)
	assert.Equal(t, db.Inventory{"tea": 2}, snap.Inventory)
	assert.False(t, snap.UpdatedAt.IsZero())

	mock.ExpectExec(q("UPDATE players SET snapshot = $2")).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = s.SaveSnapshot(ctx, "ghost", db.NewSnapshot(time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}
