package services

import "errors"

var (
	ErrDemoNotFound       = errors.New("demo not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
