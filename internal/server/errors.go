package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/telandes/recaudo/internal/billing/domain"
	notificationdomain "github.com/telandes/recaudo/internal/notification/domain"
	paymentdomain "github.com/telandes/recaudo/internal/payment/domain"
	"github.com/telandes/recaudo/internal/settings"
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e apiError) Error() string { return e.Code }

func invalidRequestError() apiError {
	return apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body or parameters are malformed",
	}
}

func newValidationError(field, code, message string) apiError {
	return apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Field:   field,
		Message: message,
	}
}

// statusFor maps domain sentinel errors to HTTP status codes. Unknown
// errors become a 500 without leaking internals.
func statusFor(err error) int {
	switch {
	case errors.Is(err, subscriberdomain.ErrNotFound),
		errors.Is(err, billingdomain.ErrUnknownSubscriber),
		errors.Is(err, notificationdomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, billingdomain.ErrPeriodAlreadySettled),
		errors.Is(err, notificationdomain.ErrNotPending),
		errors.Is(err, notificationdomain.ErrAttemptsExhausted),
		errors.Is(err, notificationdomain.ErrDuplicateToday):
		return http.StatusConflict
	case errors.Is(err, subscriberdomain.ErrDuplicateNationalID):
		return http.StatusConflict
	case errors.Is(err, subscriberdomain.ErrInvalidNationalID),
		errors.Is(err, subscriberdomain.ErrInvalidName),
		errors.Is(err, subscriberdomain.ErrInvalidPlanPrice),
		errors.Is(err, subscriberdomain.ErrInvalidRegistration),
		errors.Is(err, subscriberdomain.ErrInvalidStatus),
		errors.Is(err, billingdomain.ErrInvalidAsOf),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, notificationdomain.ErrInvalidType),
		errors.Is(err, notificationdomain.ErrInvalidMessage),
		errors.Is(err, notificationdomain.ErrNoDestination),
		errors.Is(err, notificationdomain.ErrUnsupportedChannel),
		errors.Is(err, settings.ErrInvalidNoticeDays),
		errors.Is(err, settings.ErrInvalidGraceDays),
		errors.Is(err, settings.ErrInvalidLateFee):
		return http.StatusBadRequest
	case errors.Is(err, billingdomain.ErrInactiveSubscriber):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError terminates the request with the JSON error envelope.
func AbortWithError(c *gin.Context, err error) {
	var api apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.Status, gin.H{"error": api})
		return
	}

	status := statusFor(err)
	code := err.Error()
	if status == http.StatusInternalServerError {
		code = "internal_error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apiError{
		Status:  status,
		Code:    code,
		Message: code,
	}})
}
