package statsync

import "errors"

var (
	// ErrStatNotFound is returned when a named stat does not exist.
	ErrStatNotFound = errors.New("stat not found")
	// ErrTypeMismatch is returned when a value's type disagrees with the
	// stat's established type.
	ErrTypeMismatch = errors.New("stat value type mismatch")
	// ErrUserNotFound is returned for operations on an unregistered user.
	ErrUserNotFound = errors.New("user not found")
	// ErrClosed is returned for operations on a shut-down manager.
	ErrClosed = errors.New("manager is closed")
)
