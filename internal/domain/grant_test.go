package domain

import (
	"testing"
	"time"
)

func TestNewGrant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, err := NewGrant("clip_best.mp4", now)
	if err != nil {
		t.Fatalf("NewGrant: %v", err)
	}
	if g.Filename != "clip_best.mp4" {
		t.Fatalf("filename %q", g.Filename)
	}
	if !g.Token.Valid() {
		t.Fatalf("minted token not valid: %q", g.Token)
	}
	if !g.CreatedAt.Equal(now) {
		t.Fatalf("createdAt %v", g.CreatedAt)
	}
}

func TestGrantExpiredAfter(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := Grant{Filename: "f", CreatedAt: created}
	window := 30 * time.Minute

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{name: "just_created", now: created, expired: false},
		{name: "one_second_before", now: created.Add(window - time.Second), expired: false},
		{name: "exact_boundary", now: created.Add(window), expired: false},
		{name: "one_second_after", now: created.Add(window + time.Second), expired: true},
		{name: "long_after", now: created.Add(48 * time.Hour), expired: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.ExpiredAfter(tc.now, window); got != tc.expired {
				t.Fatalf("ExpiredAfter(%v) = %v, want %v", tc.now, got, tc.expired)
			}
		})
	}
}
