package query

import "errors"

// ErrMalformedFilter reports a q parameter that is not a JSON object. Parse
// still returns a usable Query alongside it.
var ErrMalformedFilter = errors.New("malformed q filter")
