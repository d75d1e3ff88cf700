package classifier

import "errors"

// ErrUndefinedCategory is returned for a missing or NaN value. Callers
// exclude such observations from aggregates and count them.
var ErrUndefinedCategory = errors.New("undefined category")
