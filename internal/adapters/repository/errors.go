package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrDuplicateID = errors.New("duplicate id")
	ErrBackend     = errors.New("store backend failure")
)
