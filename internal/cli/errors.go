package cli

import "errors"

// Error constants.
var (
	ErrUsage    = errors.New("invalid usage")
	ErrScenario = errors.New("scenario file")
	ErrRemote   = errors.New("remote estimate failed")
)
