package scoring

import "errors"

// ErrInvalidInput reports numbers a severity cannot be derived from.
var ErrInvalidInput = errors.New("scoring: invalid input")
