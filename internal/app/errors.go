package app

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrManualNotFound  = errors.New("manual not found")
	ErrSessionNotFound = errors.New("session not found")
)
