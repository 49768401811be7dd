package types

import "errors"

// ErrInvalidInput marks workout inputs or sampling options that cannot be evaluated.
var ErrInvalidInput = errors.New("invalid input")
