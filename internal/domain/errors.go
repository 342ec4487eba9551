package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrInstanceExists       = errors.New("instance with this id already exists")
	ErrInstanceNotFound     = errors.New("instance not found")
	ErrHandlerNotFound      = errors.New("input event handler not found")
	ErrDuplicateHandler     = errors.New("input event handler already exists")
	ErrNotAdminConnection   = errors.New("connection is not the instance admin")
	ErrVersionConflict      = errors.New("stored version changed since read")
	ErrConcurrencyExhausted = errors.New("gave up after repeated version conflicts")
)
