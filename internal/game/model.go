package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/krishanu7/subway-trader-backend/db"
)

// ValidationError describes a rejected snapshot field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

const maxStationLen = 64

// SaveRequest is the client's view of the economy state.
type SaveRequest struct {
	Money              *float64     `json:"money"`
	Inventory          db.Inventory `json:"inventory"`
	ItemCosts          db.Inventory `json:"itemCosts"`
	LastVisitedStation string       `json:"lastVisitedStation"`
	CurrentTime        *time.Time   `json:"currentTime"`
}

// Validate checks the request and converts it into a snapshot.
func (r SaveRequest) Validate() (db.Snapshot, error) {
	if r.Money == nil {
		return db.Snapshot{}, &ValidationError{"money", "is required"}
	}
	if *r.Money < 0 || math.IsNaN(*r.Money) || math.IsInf(*r.Money, 0) {
		return db.Snapshot{}, &ValidationError{"money", "must be a non-negative number"}
	}
	if err := r.Inventory.Validate(); err != nil {
		return db.Snapshot{}, &ValidationError{"inventory", err.Error()}
	}
	if err := r.ItemCosts.Validate(); err != nil {
		return db.Snapshot{}, &ValidationError{"itemCosts", err.Error()}
	}
	station := strings.TrimSpace(r.LastVisitedStation)
	if station == "" {
		return db.Snapshot{}, &ValidationError{"lastVisitedStation", "is required"}
	}
	if len(station) > maxStationLen {
		return db.Snapshot{}, &ValidationError{"lastVisitedStation", "is too long"}
	}
	if r.CurrentTime == nil || r.CurrentTime.IsZero() {
		return db.Snapshot{}, &ValidationError{"currentTime", "is required"}
	}

	return db.Snapshot{
		Money:              *r.Money,
		Inventory:          r.Inventory.Clone(),
		ItemCosts:          r.ItemCosts.Clone(),
		LastVisitedStation: station,
		CurrentTime:        *r.CurrentTime,
	}, nil
}

// IsValidation reports whether err is a snapshot validation failure.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
