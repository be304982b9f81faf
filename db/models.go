package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Player is the persisted account and its best score.
type Player struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"password" db:"password_hash"`
	HighScore    int64     `json:"highScore" db:"high_score"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Inventory maps an item name to a non-negative count. It doubles as the
// per-item price table (itemCosts) of a snapshot.
type Inventory map[string]int64

// Validate rejects empty item names and negative values.
func (inv Inventory) Validate() error {
	for item, n := range inv {
		if item == "" {
			return fmt.Errorf("empty item name")
		}
		if n < 0 {
			return fmt.Errorf("item %q has negative value %d", item, n)
		}
	}
	return nil
}

// Clone returns an independent copy; nil becomes an empty map.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Snapshot is a player's saved economy state.
type Snapshot struct {
	Money              float64   `json:"money"`
	Inventory          Inventory `json:"inventory"`
	ItemCosts          Inventory `json:"itemCosts"`
	LastVisitedStation string    `json:"lastVisitedStation"`
	CurrentTime        time.Time `json:"currentTime"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

const (
	DefaultMoney   = 1000
	DefaultStation = "Kipling"
)

// NewSnapshot returns the starting state for a player who never saved:
// default money, empty inventory and the clock at 22:00 on now's date.
func NewSnapshot(now time.Time) Snapshot {
	y, m, d := now.Date()
	return Snapshot{
		Money:              DefaultMoney,
		Inventory:          Inventory{},
		ItemCosts:          Inventory{},
		LastVisitedStation: DefaultStation,
		CurrentTime:        time.Date(y, m, d, 22, 0, 0, 0, now.Location()),
	}
}

// Clone deep-copies the maps so stores never share them with callers.
func (s Snapshot) Clone() Snapshot {
	s.Inventory = s.Inventory.Clone()
	s.ItemCosts = s.ItemCosts.Clone()
	return s
}
