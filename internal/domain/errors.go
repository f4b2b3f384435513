package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrProviderFailure = errors.New("provider failure")

	// ErrRejected marks a stage invocation refused before any external call.
	ErrRejected     = errors.New("stage invocation rejected")
	ErrStageBusy    = fmt.Errorf("%w: stage already running", ErrRejected)
	ErrMissingInput = fmt.Errorf("%w: required input missing", ErrRejected)
)
