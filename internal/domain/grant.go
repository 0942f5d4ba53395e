// Package domain grant.go defines the access grant for a stored file.
package domain

import "time"

// Grant authorizes delivery of one stored file via one token for a bounded
// time. A grant is immutable once minted; there is no renewal. Two windows
// are measured from CreatedAt: the URL validity window (delivery
// authorization) and the longer retention window (file reclamation).
type Grant struct {
	Filename  string
	Token     Token
	CreatedAt time.Time
}

// NewGrant mints a grant for filename with a fresh random token.
func NewGrant(filename string, now time.Time) (Grant, error) {
	tok, err := NewToken()
	if err != nil {
		return Grant{}, err
	}
	return Grant{Filename: filename, Token: tok, CreatedAt: now}, nil
}

// Age returns how long the grant has existed as of now.
func (g Grant) Age(now time.Time) time.Duration { return now.Sub(g.CreatedAt) }

// ExpiredAfter reports whether the grant's age exceeds window as of now.
// The boundary itself is still valid: age == window is not expired.
func (g Grant) ExpiredAfter(now time.Time, window time.Duration) bool {
	return now.Sub(g.CreatedAt) > window
}
