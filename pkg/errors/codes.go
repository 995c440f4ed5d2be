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

// Common error codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Evidence module error codes.
const (
	ErrCodeEvidenceNotFound      ErrorCode = "EVID_001"
	ErrCodeEvidenceInvalid       ErrorCode = "EVID_002"
	ErrCodeEvidenceStatusInvalid ErrorCode = "EVID_003"
	ErrCodeEvidenceLockFailed    ErrorCode = "EVID_004"
)

// Valuation module error codes.
const (
	ErrCodeValuationFailed           ErrorCode = "VAL_001"
	ErrCodeValuationDataInsufficient ErrorCode = "VAL_002"
)

// Section classification error codes.
const (
	ErrCodeSectionUnknown          ErrorCode = "SEC_001"
	ErrCodeSectionRequiredExcluded ErrorCode = "SEC_002"
)

// Contradiction checker error codes.
const (
	ErrCodeContradictionBlocked ErrorCode = "CONTRA_001"
	ErrCodeRuleInvalid          ErrorCode = "CONTRA_002"
)

// Report compiler error codes.
const (
	ErrCodeCompilationBlocked  ErrorCode = "RPT_001"
	ErrCodeAlreadyCompiling    ErrorCode = "RPT_002"
	ErrCodeCompilationFailed   ErrorCode = "RPT_003"
	ErrCodeReportNotFound      ErrorCode = "RPT_004"
	ErrCodeArtifactStoreFailed ErrorCode = "RPT_005"
)

// Signing service error codes.
const (
	ErrCodeSigningFailed      ErrorCode = "SIGN_001"
	ErrCodeSigningUnavailable ErrorCode = "SIGN_002"
)

// Aliases used by the generic factory helpers in errors.go.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeUnauthorized = ErrCodeUnauthorized
	CodeForbidden    = ErrCodeForbidden
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeEvidenceNotFound:      http.StatusNotFound,
	ErrCodeEvidenceInvalid:       http.StatusBadRequest,
	ErrCodeEvidenceStatusInvalid: http.StatusBadRequest,
	ErrCodeEvidenceLockFailed:    http.StatusConflict,

	ErrCodeValuationFailed:           http.StatusInternalServerError,
	ErrCodeValuationDataInsufficient: http.StatusUnprocessableEntity,

	ErrCodeSectionUnknown:          http.StatusBadRequest,
	ErrCodeSectionRequiredExcluded: http.StatusUnprocessableEntity,

	ErrCodeContradictionBlocked: http.StatusConflict,
	ErrCodeRuleInvalid:          http.StatusInternalServerError,

	ErrCodeCompilationBlocked:  http.StatusConflict,
	ErrCodeAlreadyCompiling:    http.StatusConflict,
	ErrCodeCompilationFailed:   http.StatusUnprocessableEntity,
	ErrCodeReportNotFound:      http.StatusNotFound,
	ErrCodeArtifactStoreFailed: http.StatusBadGateway,

	ErrCodeSigningFailed:      http.StatusBadGateway,
	ErrCodeSigningUnavailable: http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeEvidenceNotFound:      "evidence record not found",
	ErrCodeEvidenceInvalid:       "invalid evidence record",
	ErrCodeEvidenceStatusInvalid: "invalid evidence status",
	ErrCodeEvidenceLockFailed:    "failed to acquire property lock",

	ErrCodeValuationFailed:           "automated valuation failed",
	ErrCodeValuationDataInsufficient: "insufficient comparable evidence",

	ErrCodeSectionUnknown:          "unknown report section",
	ErrCodeSectionRequiredExcluded: "required section cannot be excluded",

	ErrCodeContradictionBlocked: "critical contradictions present",
	ErrCodeRuleInvalid:          "contradiction rule misconfigured",

	ErrCodeCompilationBlocked:  "report compilation blocked",
	ErrCodeAlreadyCompiling:    "a compile attempt is already in progress",
	ErrCodeCompilationFailed:   "report compilation failed",
	ErrCodeReportNotFound:      "compiled report not found",
	ErrCodeArtifactStoreFailed: "failed to persist report artifact",

	ErrCodeSigningFailed:      "document signing failed",
	ErrCodeSigningUnavailable: "signing service unavailable",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
