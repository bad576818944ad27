package errors

import (
	"fmt"
	"net/http"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewStoreError creates a persistence error with operation context
func NewStoreError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStoreQuery, fmt.Sprintf("store %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Storage operation failed")
}

// NewAPIError creates an error for a failed messaging API call
func NewAPIError(operation, endpoint string, statusCode int, err error) *AppError {
	return Wrap(err, ErrCodeMessageAPI, fmt.Sprintf("%s failed", operation)).
		WithContext("operation", operation).
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode).
		WithUserMessage(fmt.Sprintf("%s failed", operation))
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// NewAttachmentTooLargeError reports a client-side size ceiling violation.
func NewAttachmentTooLargeError(kind string, size, limit int64) *AppError {
	return New(ErrCodeAttachmentTooLarge, fmt.Sprintf("%s too large: %d > %d bytes", kind, size, limit)).
		WithContext("kind", kind).
		WithContext("size", size).
		WithContext("limit", limit).
		WithUserMessage(fmt.Sprintf("%s exceeds the maximum allowed size", kind))
}

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput, ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeAuthorization, ErrCodeRecallRejected, ErrCodeResendRejected:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAttachmentTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	case ErrCodeStoreConnection, ErrCodeStoreQuery:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorResponse is the standardized wire shape for error responses.
type HTTPErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// ToHTTPResponse converts an error to a standardized HTTP response body.
func ToHTTPResponse(err error) HTTPErrorResponse {
	var response HTTPErrorResponse
	if appErr, ok := err.(*AppError); ok {
		response.Error.Code = appErr.Code
		response.Error.Message = GetUserMessage(err)
	} else {
		response.Error.Code = ErrCodeInternalError
		response.Error.Message = GetUserMessage(err)
	}
	return response
}
