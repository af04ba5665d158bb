package service

import "errors"

// ErrUnauthorized is returned by Login for a wrong password.
var ErrUnauthorized = errors.New("invalid password")
