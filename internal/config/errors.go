package config

import "errors"

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state, such as
// a duplicate coupon code or a refund decision on an already-decided request.
var ErrConflict = errors.New("conflict")
