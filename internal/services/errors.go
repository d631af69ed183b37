package services

import (
	"errors"
	"time"
)

var (
	ErrAccessTokenNotFound     = errors.New("access token not found")
	ErrAccessTokenExpired      = errors.New("access token expired")
	ErrPhoneMissing            = errors.New("registration has no usable phone number")
	ErrSessionInvalid          = errors.New("session token invalid or expired")
	ErrRegistrationNotFound    = errors.New("registration not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidInput            = errors.New("invalid input")
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
