package tier

import "errors"

var (
	ErrUnknownTier = errors.New("unknown tier")
	ErrUnknownType = errors.New("unknown tier type")
	ErrNotInBucket = errors.New("placement not in bucket")
	ErrIndex       = errors.New("bucket index out of range")
)
