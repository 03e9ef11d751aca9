package sync

import (
	"time"

	"github.com/google/uuid"
)

// CycleReport describes one pass over every registered user.
type CycleReport struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Users      []UserReport
	Pending    int // Users never started because the cycle was cancelled
}

// Failed returns how many users ended the cycle with an error.
// Interrupted users are not counted.
func (r *CycleReport) Failed() int {
	n := 0
	for _, u := range r.Users {
		if u.Err != nil && !u.Interrupted {
			n++
		}
	}
	return n
}

// Duration returns how long the cycle took.
func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// UserReport is the outcome of syncing one user.
type UserReport struct {
	UserID      string
	Refreshed   bool // The access token was refreshed during this sync
	Skipped     bool // The user had no managed playlists
	Interrupted bool // The context was cancelled mid-sync; Err holds why
	Playlists   []ReconcileResult
	Err         error
}

// TracksAdded returns the total number of tracks added across playlists.
func (r UserReport) TracksAdded() int {
	n := 0
	for _, p := range r.Playlists {
		n += len(p.Added)
	}
	return n
}
