package storage

import "errors"

// ErrNotFound is returned when a requested record or submission does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrConflict is returned when creating a BIN record whose code already exists.
var ErrConflict = errors.New("storage: already exists")
