package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
)

// Search module error codes.
const (
	// ErrCodeIndexUnavailable marks a failed similarity-index call.  The
	// search engine degrades to an empty hit set when it sees this code; it
	// is never surfaced to callers as a hard failure.
	ErrCodeIndexUnavailable ErrorCode = "SRCH_001"
	ErrCodeEmbeddingFailed  ErrorCode = "SRCH_002"
	ErrCodeIndexWriteFailed ErrorCode = "SRCH_003"
	ErrCodeMalformedRecord  ErrorCode = "SRCH_004"
)

// Reasoning-loop error codes.
const (
	ErrCodeModelTimeout    ErrorCode = "RAG_001"
	ErrCodeModelBackend    ErrorCode = "RAG_002"
	ErrCodeAnswerFailed    ErrorCode = "RAG_003"
	ErrCodeIterationBudget ErrorCode = "RAG_004"
)

// Query-cache error codes.
const (
	ErrCodeCacheMiss  ErrorCode = "CACHE_001"
	ErrCodeCacheWrite ErrorCode = "CACHE_002"
	ErrCodeCacheRead  ErrorCode = "CACHE_003"
)

// Sentinel codes.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// HTTPStatus maps an ErrorCode onto the HTTP status the interfaces layer
// responds with.  Unrecognised codes map to 500.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeCacheMiss:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeTimeout, ErrCodeModelTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeServiceUnavailable, ErrCodeIndexUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ModuleOf returns the module prefix of a code ("COMMON", "SRCH", "RAG",
// "CACHE"), suitable as a low-cardinality metric label.
func ModuleOf(code ErrorCode) string {
	s := string(code)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}
