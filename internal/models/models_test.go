package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"unknown expiry", time.Time{}, false},
		{"expires in the future", now.Add(time.Minute), false},
		{"expires exactly now", now, true},
		{"expired in the past", now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, c.Expired(now))
		})
	}
}

func TestTrackIDs(t *testing.T) {
	tracks := []Track{{ID: "a", Name: "A"}, {ID: "b"}, {ID: "a"}}
	assert.Equal(t, []TrackID{"a", "b", "a"}, TrackIDs(tracks))
	assert.Empty(t, TrackIDs(nil))
}
