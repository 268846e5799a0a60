package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waste3d/course-marketplace/internal/domain"
)

// writeError maps domain errors to HTTP statuses. Anything unknown is an
// infrastructure failure: it is attached to the context for the request
// logger and hidden from the client.
func writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, domain.ErrAlreadyEnrolled),
		errors.Is(err, domain.ErrDuplicateEnrollment),
		errors.Is(err, domain.ErrCheckoutInProgress),
		errors.Is(err, domain.ErrSessionNotPending):
		return http.StatusConflict, err.Error()

	case errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrEnrollmentNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusGone, err.Error()

	case errors.Is(err, domain.ErrNotEnrolled),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, domain.ErrCourseUnavailable):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, domain.ErrUpstream):
		return http.StatusServiceUnavailable, "payment provider unavailable, retry later"

	case errors.Is(err, domain.ErrPaymentRejected):
		return http.StatusBadGateway, "payment provider rejected the checkout, retry later"
	}
	return http.StatusInternalServerError, "internal error"
}
