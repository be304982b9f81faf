package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/krishanu7/subway-trader-backend/db"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	high_score    BIGINT NOT NULL DEFAULT 0 CHECK (high_score >= 0),
	snapshot      JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS players_leaderboard_idx ON players (high_score DESC, username);
`

// Postgres stores each player as one row with the economy snapshot kept as
// a JSONB document.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrUnavailable, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return NewPostgres(conn), nil
}

func NewPostgres(conn *sql.DB) *Postgres {
	return &Postgres{db: conn}
}

// EnsureSchema creates the players table and leaderboard index.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return unavailable("ensure schema", err)
	}
	return nil
}

func (s *Postgres) GetPlayer(ctx context.Context, username string) (db.Player, error) {
	var p db.Player
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, high_score, created_at, updated_at
		FROM players
		WHERE username = $1`, username,
	).Scan(&p.ID, &p.Username, &p.PasswordHash, &p.HighScore, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Player{}, ErrNotFound
	}
	if err != nil {
		return db.Player{}, unavailable("get player", err)
	}
	return p, nil
}

func (s *Postgres) CreatePlayer(ctx context.Context, username, passwordHash string) (db.Player, error) {
	var p db.Player
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, high_score, created_at, updated_at`,
		uuid.New(), username, passwordHash,
	).Scan(&p.ID, &p.Username, &p.PasswordHash, &p.HighScore, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return db.Player{}, ErrUsernameTaken
		}
		return db.Player{}, unavailable("create player", err)
	}
	return p, nil
}

// UpdateHighScore relies on the conditional UPDATE for atomicity; concurrent
// submissions for one player can only ever raise the stored value.
func (s *Postgres) UpdateHighScore(ctx context.Context, username string, candidate int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players
		SET high_score = $2, updated_at = now()
		WHERE username = $1 AND high_score < $2`, username, candidate)
	if err != nil {
		return false, unavailable("update high score", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("update high score", err)
	}
	if n > 0 {
		return true, nil
	}
	if err := s.exists(ctx, username); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Postgres) SaveSnapshot(ctx context.Context, username string, snap db.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE players
		SET snapshot = $2, updated_at = now()
		WHERE username = $1`, username, doc)
	if err != nil {
		return unavailable("save snapshot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("save snapshot", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) LoadSnapshot(ctx context.Context, username string) (db.Snapshot, error) {
	var (
		doc       []byte
		updatedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot, updated_at FROM players WHERE username = $1`, username,
	).Scan(&doc, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return db.Snapshot{}, unavailable("load snapshot", err)
	}
	if len(doc) == 0 {
		return db.Snapshot{}, ErrNotFound
	}

	var snap db.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return db.Snapshot{}, fmt.Errorf("decode snapshot for %s: %w", username, err)
	}
	if snap.UpdatedAt.IsZero() && updatedAt.Valid {
		snap.UpdatedAt = updatedAt.Time
	}
	return snap.Clone(), nil
}

func (s *Postgres) TopOne(ctx context.Context) (*Entry, error) {
	top, err := s.TopN(ctx, 1)
	if err != nil || len(top) == 0 {
		return nil, err
	}
	return &top[0], nil
}

func (s *Postgres) Above(ctx context.Context, target int64, limit int) ([]Entry, error) {
	return s.query(ctx, "above", `
		SELECT username, high_score FROM players
		WHERE high_score > $1
		ORDER BY high_score ASC, username DESC
		LIMIT $2`, target, limit)
}

func (s *Postgres) Below(ctx context.Context, target int64, limit int) ([]Entry, error) {
	return s.query(ctx, "below", `
		SELECT username, high_score FROM players
		WHERE high_score < $1
		ORDER BY high_score DESC, username ASC
		LIMIT $2`, target, limit)
}

func (s *Postgres) ByUsername(ctx context.Context, username string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT username, high_score FROM players WHERE username = $1`, username,
	).Scan(&e.Username, &e.HighScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("by username", err)
	}
	return &e, nil
}

func (s *Postgres) TopN(ctx context.Context, n int) ([]Entry, error) {
	return s.query(ctx, "top", `
		SELECT username, high_score FROM players
		ORDER BY high_score DESC, username ASC
		LIMIT $1`, n)
}

func (s *Postgres) AllScores(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, "all scores", `
		SELECT username, high_score FROM players
		ORDER BY high_score DESC, username ASC`)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) query(ctx context.Context, op, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Username, &e.HighScore); err != nil {
			return nil, unavailable(op, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return entries, nil
}

func (s *Postgres) exists(ctx context.Context, username string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE username = $1`, username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("lookup player", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
