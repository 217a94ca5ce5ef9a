package app

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoStore = errors.New("performance store not configured")
)
