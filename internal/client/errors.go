package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors.
var (
	ErrInvalidBaseURL = errors.New("invalid base url")
	ErrAlreadyPlaced  = errors.New("pokemon already placed in this view")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Body    map[string]any
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// newAPIError parses body as a JSON object when it is one, falling back to
// the raw text.
func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	if err := json.Unmarshal(raw, &e.Body); err == nil {
		if msg, ok := e.Body["error"].(string); ok {
			e.Message = msg
		}
	} else {
		e.Body = nil
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }
