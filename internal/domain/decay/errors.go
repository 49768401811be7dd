package decay

import "errors"

// ErrInvalidParams marks parameters that cannot describe a decaying curve.
var ErrInvalidParams = errors.New("invalid model params")
