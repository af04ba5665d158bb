package cli

import "errors"

// Sentinel errors.
var (
	ErrNoUpsert = errors.New("backend does not support upsert")
	ErrImport   = errors.New("import finished with errors")
)
