package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("profile not found")
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrUnknownDriver   = errors.New("unknown store driver")
	ErrClosed          = errors.New("store closed")
)
