package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error messages returned in {"error": ...} bodies.
const (
	msgItemNotFound  = "Item not found"
	msgUnknownEntity = "Entity type not found"
	msgBadBody       = "Invalid request body"
	msgInvalidPass   = "Invalid password"
	msgInternal      = "Internal server error"
	msgAPINotFound   = "API endpoint not found"
	msgNotFound      = "Not found"
)
