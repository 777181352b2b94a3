package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is used when request binding fails field rules
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidInput is used for input the domain rejects
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for the invoice or franchisee state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Statement upload error codes
const (
	ErrCodeUnsupportedFormat = "ERR_UNSUPPORTED_FORMAT"
	ErrCodeExtractionFailed  = "ERR_EXTRACTION_FAILED"
	ErrCodeFileTooLarge      = "ERR_FILE_TOO_LARGE"
	ErrCodeTooManyFiles      = "ERR_TOO_MANY_FILES"
)

// Webhook error codes
const (
	ErrCodeInvalidSignature = "ERR_INVALID_SIGNATURE"
)

// Transport error codes
const (
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeUnsupportedFormat: http.StatusUnsupportedMediaType,
	ErrCodeExtractionFailed:  http.StatusUnprocessableEntity,
	ErrCodeFileTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeTooManyFiles:      http.StatusBadRequest,
	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,

	ErrCodeInvalidSignature: http.StatusUnauthorized,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Field-level domain codes (ERR_INVALID_BRAND, ERR_INVALID_PERIOD, ...) are
// bad requests; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INVOICE_NUMBER_TAKEN": ErrCodeConcurrencyConflict,
	"UNSUPPORTED_FORMAT":   ErrCodeUnsupportedFormat,
	"EXTRACTION_FAILED":    ErrCodeExtractionFailed,
	"FILE_TOO_LARGE":       ErrCodeFileTooLarge,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unmapped INVALID_* codes keep their suffix; codes already in API form pass through.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if strings.HasPrefix(code, "INVALID_") {
		return "ERR_" + code
	}
	return code
}
