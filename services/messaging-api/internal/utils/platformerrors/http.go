package platformerrors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response and aborts the handler chain.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, HTTPErrorResponse{
			Error: &HTTPErrorDetail{
				Message: "unknown error",
				Type:    "internal_error",
			},
		})
		return
	}

	LogError(log, err)

	requestID := err.RequestID
	if requestID == "" {
		requestID = RequestIDFromContext(c.Request.Context())
	}

	c.AbortWithStatusJSON(ErrorTypeToHTTPStatus(err.Type), HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   clientMessage(err),
			Type:      errorTypeToString(err.Type),
			Code:      err.UUID,
			RequestID: requestID,
		},
	})
}

// WriteError writes a generic error as an HTTP response.
// Errors that are not PlatformErrors are reported as internal errors without leaking their text.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("unhandled error")
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   "internal server error",
			Type:      "internal_error",
			RequestID: RequestIDFromContext(c.Request.Context()),
		},
	})
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   message,
			Type:      "validation_error",
			RequestID: RequestIDFromContext(c.Request.Context()),
		},
	})
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   message,
			Type:      "unauthorized_error",
			RequestID: RequestIDFromContext(c.Request.Context()),
		},
	})
}

// clientMessage returns the message of the innermost PlatformError, leaving out the
// "operation: " prefixes added by AsError on the way up.
func clientMessage(err *PlatformError) string {
	origin := err
	for {
		var inner *PlatformError
		if origin.Err == nil || !errors.As(origin.Err, &inner) {
			return origin.Message
		}
		origin = inner
	}
}

// errorTypeToString converts an ErrorType to a snake_case string for API responses.
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeBadRequest:
		return "bad_request_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeUnavailable:
		return "service_unavailable_error"
	case ErrorTypeDatabaseError, ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
