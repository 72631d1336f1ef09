package models

import "errors"

// Pipeline failure taxonomy. Every error returned by a pipeline stage wraps exactly one of these.
var (
	ErrSchema         = errors.New("schema error")
	ErrParse          = errors.New("parse error")
	ErrFit            = errors.New("fit error")
	ErrPrediction     = errors.New("prediction error")
	ErrInvalidHorizon = errors.New("invalid horizon")

	// ErrOverlap means the forecast does not start strictly after the history ends.
	ErrOverlap = errors.New("forecast overlaps history")
)
