package entity

import "errors"

// ErrUnknownKind is returned for a kind name outside the closed set.
var ErrUnknownKind = errors.New("unknown entity kind")
