package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when an attempt id is unknown or already discarded.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSessionExpired is returned when the stored auth token is missing, expired or rejected.
	ErrSessionExpired = errors.New("session expired")

	ErrTimeLimitEmpty    = errors.New("time limit is empty")
	ErrTimeLimitNotValid = errors.New("time limit is not a number")
	ErrTimeLimitTooLow   = errors.New("time limit must be greater than 0")
	ErrTimeLimitTooHigh  = errors.New("time limit must be at most 999 minutes")
)
