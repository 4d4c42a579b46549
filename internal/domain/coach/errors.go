package coach

import "errors"

var (
	// ErrInvalidResponse marks model output that does not have the expected shape.
	ErrInvalidResponse = errors.New("invalid coach response")
	ErrInvalidCard     = errors.New("invalid card")
	ErrInvalidRequest  = errors.New("invalid coaching request")
)
