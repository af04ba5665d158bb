package importer

import "errors"

// Sentinel errors.
var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrNotArray    = errors.New("JSON must be an array of objects")
	ErrBadMoves    = errors.New("moves_used must be an array or comma-separated string")
)
