package render

import "errors"

var ErrMissingTemplate = errors.New("missing required template")
