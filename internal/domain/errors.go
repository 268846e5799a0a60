package domain

import (
	"errors"
	"fmt"
)

// Validation
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidScore    = fmt.Errorf("%w: score must be between 1 and 5", ErrValidation)
	ErrInvalidDiscount = fmt.Errorf("%w: discount must be between 0 and 100", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: price must not be negative", ErrValidation)
	ErrInvalidDuration = fmt.Errorf("%w: lecture duration must not be negative", ErrValidation)
)

// Conflict
var (
	ErrAlreadyEnrolled     = errors.New("already enrolled in this course")
	ErrDuplicateEnrollment = errors.New("enrollment already recorded")
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
	ErrSessionNotPending   = errors.New("checkout session is not awaiting confirmation")
	ErrInvalidTransition   = errors.New("invalid checkout session transition")
)

// Not found
var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

var (
	ErrSessionExpired    = errors.New("checkout session expired")
	ErrCourseUnavailable = errors.New("course is not available for purchase")
	ErrNotEnrolled       = errors.New("student is not enrolled in this course")
	ErrForbidden         = errors.New("access denied")
)

// Upstream
var (
	ErrUpstream        = errors.New("payment processor unavailable, retry later")
	ErrPaymentRejected = errors.New("payment processor rejected the checkout")
)
