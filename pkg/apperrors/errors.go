package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrConflict        = errors.New("conflict")
	ErrNotGenerated    = errors.New("artifact not generated yet")
	ErrDealNotViewable = errors.New("deal contract not available")
)
