package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/krishanu7/subway-trader-backend/db"
)

// fileState is the on-disk document.
type fileState struct {
	Players   []db.Player            `json:"players"`
	Snapshots map[string]db.Snapshot `json:"snapshots"`
}

// File is a Memory backend that writes its whole state to a JSON document
// after every successful mutation. A write that cannot be persisted is
// rolled back and reported as ErrUnavailable.
type File struct {
	*Memory
	path string
	// wmu serialises mutate-then-flush sequences.
	wmu sync.Mutex
}

// OpenFile loads path if it exists and creates its directory otherwise.
func OpenFile(path string) (*File, error) {
	f := &File{Memory: NewMemory(), path: path}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %w", ErrUnavailable, err)
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}

	var st fileState
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	f.Memory.restore(st)
	return f, nil
}

func (f *File) CreatePlayer(ctx context.Context, username, passwordHash string) (db.Player, error) {
	var p db.Player
	err := f.mutate(func() error {
		var err error
		p, err = f.Memory.CreatePlayer(ctx, username, passwordHash)
		return err
	})
	return p, err
}

func (f *File) UpdateHighScore(ctx context.Context, username string, candidate int64) (bool, error) {
	var updated bool
	err := f.mutate(func() error {
		var err error
		updated, err = f.Memory.UpdateHighScore(ctx, username, candidate)
		if err == nil && !updated {
			return errUnchanged
		}
		return err
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return updated, err
}

func (f *File) SaveSnapshot(ctx context.Context, username string, s db.Snapshot) error {
	return f.mutate(func() error {
		return f.Memory.SaveSnapshot(ctx, username, s)
	})
}

var errUnchanged = errors.New("unchanged")

// mutate applies op and persists the result; on a persistence failure the
// in-memory state is restored to what it was before op.
func (f *File) mutate(op func() error) error {
	f.wmu.Lock()
	defer f.wmu.Unlock()

	before := f.Memory.state()
	if err := op(); err != nil {
		return err
	}
	if err := f.flush(); err != nil {
		f.Memory.restore(before)
		return err
	}
	return nil
}

// flush writes to a temp file in the same directory and renames it over the
// data file so readers never observe a partial document.
func (f *File) flush() error {
	st := f.Memory.state()
	sort.Slice(st.Players, func(i, j int) bool { return st.Players[i].Username < st.Players[j].Username })

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".players-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrUnavailable, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrUnavailable, f.path, err)
	}
	return nil
}

// Path returns the data file location.
func (f *File) Path() string { return f.path }
