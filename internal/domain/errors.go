// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidToken    = errors.New("invalid grant token")
	ErrInvalidFilename = errors.New("invalid filename")
)
