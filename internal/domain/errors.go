package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrFeedbackNotFound   = errors.New("feedback not found")
	ErrForbidden          = errors.New("forbidden")
)
