package loader

import "errors"

// ErrConfiguration wraps every fatal problem found while loading models.
var ErrConfiguration = errors.New("configuration error")
