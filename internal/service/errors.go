package service

import "errors"

// Caller-input rejections surfaced by the scan and kiosk flows. Handlers
// map these to HTTP statuses with errors.Is; anything else is a store
// failure and surfaces as a 500.
var (
	ErrDeviceNotFound    = errors.New("device not found or inactive")
	ErrInvalidCode       = errors.New("invalid code")
	ErrCodeExpired       = errors.New("code expired")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserInactive      = errors.New("user inactive")
	ErrDailyLimitReached = errors.New("daily attendance limit reached")
	ErrEmailTaken        = errors.New("email already registered")
)
