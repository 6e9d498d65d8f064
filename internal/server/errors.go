package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/jhnmartin/hey-sub000/internal/checkout/domain"
	eventdomain "github.com/jhnmartin/hey-sub000/internal/event/domain"
	identitydomain "github.com/jhnmartin/hey-sub000/internal/identity/domain"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	redemptiondomain "github.com/jhnmartin/hey-sub000/internal/redemption/domain"
	"github.com/jhnmartin/hey-sub000/internal/ticket/code"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"github.com/jhnmartin/hey-sub000/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type       string            `json:"type"`
	Message    string            `json:"message"`
	Errors     []ValidationError `json:"errors,omitempty"`
	RedeemedAt *time.Time        `json:"redeemed_at,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInternal           = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var redeemed *redemptiondomain.AlreadyRedeemedError
	if errors.As(err, &redeemed) {
		at := redeemed.RedeemedAt.UTC()
		return http.StatusConflict, errorPayload{
			Type:       "already_redeemed",
			Message:    "ticket already redeemed",
			RedeemedAt: &at,
		}
	}

	switch {
	case isUnauthenticatedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, checkoutdomain.ErrInvalidTicketingMode),
		errors.Is(err, inventorydomain.ErrTierUnavailable),
		errors.Is(err, ticketdomain.ErrOrderNotComplete),
		errors.Is(err, orderdomain.ErrInvalidState):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	case errors.Is(err, inventorydomain.ErrInsufficientInventory):
		return http.StatusConflict, errorPayload{
			Type:    "insufficient_inventory",
			Message: "not enough tickets available",
		}
	case errors.Is(err, redemptiondomain.ErrAlreadyRedeemed):
		return http.StatusConflict, errorPayload{
			Type:    "already_redeemed",
			Message: "ticket already redeemed",
		}
	case errors.Is(err, redemptiondomain.ErrVoided):
		return http.StatusGone, errorPayload{
			Type:    "voided",
			Message: "ticket is void",
		}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "invalid signature",
		}
	case errors.Is(err, paymentdomain.ErrPaymentSessionTimeout):
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "payment_session_timeout",
			Message: "payment processor did not respond in time",
		}
	case errors.Is(err, paymentdomain.ErrPaymentSession):
		return http.StatusBadGateway, errorPayload{
			Type:    "payment_session_error",
			Message: "payment processor rejected the session",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds error_type and error_code on the request log line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server", code
	case status == http.StatusUnauthorized:
		return "auth", code
	default:
		return "client", code
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrEmptyItems),
		errors.Is(err, checkoutdomain.ErrTooManyItems),
		errors.Is(err, checkoutdomain.ErrInvalidQuantity),
		errors.Is(err, checkoutdomain.ErrInvalidReturnURL),
		errors.Is(err, code.ErrInvalidCode),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return true
	default:
		return false
	}
}

func isUnauthenticatedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrUnauthenticated),
		errors.Is(err, identitydomain.ErrSessionExpired),
		errors.Is(err, identitydomain.ErrSessionRevoked),
		errors.Is(err, checkoutdomain.ErrUnauthenticated),
		errors.Is(err, orderdomain.ErrUnauthenticated),
		errors.Is(err, ticketdomain.ErrUnauthenticated):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, eventdomain.ErrNotFound),
		errors.Is(err, inventorydomain.ErrTierNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, redemptiondomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, checkoutdomain.ErrEmptyItems),
		errors.Is(err, checkoutdomain.ErrTooManyItems):
		return "invalid_items"
	case errors.Is(err, code.ErrInvalidCode):
		return "invalid_code"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_return_url":
		return "success_url"
	case "invalid_payload", "invalid_event":
		return "body"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_items":
		return "items must hold between one and the maximum number of lines"
	case "invalid_quantity":
		return "quantity must be positive and within the per-line limit"
	case "invalid_code":
		return "code is not a ticket code"
	default:
		return "invalid value"
	}
}
