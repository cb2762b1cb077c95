package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSurfaceNotFound      = errors.New("surface not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidSettings      = errors.New("invalid surface settings")
	ErrInvalidColor         = errors.New("invalid color")
	ErrForbidden            = errors.New("not allowed to modify this surface")
	ErrInternalServer       = errors.New("internal server error")
)
