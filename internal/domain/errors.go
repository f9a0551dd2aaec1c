package domain

import "errors"

// Error taxonomy surfaced through the WebSocket error event. Services wrap
// these with fmt.Errorf("...: %w", ...) so handlers can classify with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("invalid payload")
)
