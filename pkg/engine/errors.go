package engine

import "errors"

// Error classes. Every error returned by this package wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	// ErrConfiguration reports an unusable option: a bad scaler or a spec of
	// the wrong shape altogether.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation reports names that do not match the allowed strategies or
	// the dataset's columns.
	ErrValidation = errors.New("validation error")
	// ErrState reports use of a model before it was fitted.
	ErrState = errors.New("state error")
	// ErrData reports data a strategy cannot work with, such as a target
	// without predictors or a numeric strategy on text.
	ErrData = errors.New("data error")
)
