package db

import "errors"

// ErrNotFound is returned when a session does not exist in the store.
var ErrNotFound = errors.New("not found")
