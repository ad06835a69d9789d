package auth

import "errors"

var (
	// ErrInvalidUserID is returned when the user header is not a positive integer.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidFlag is returned when a staff or superuser header is not a boolean.
	ErrInvalidFlag = errors.New("invalid identity flag")
)
