package errors

import "net/http"

// APICode is one of the fixed error codes exposed in HTTP response envelopes.
type APICode string

const (
	APIValidationError   APICode = "VALIDATION_ERROR"
	APISiteNotFound      APICode = "SITE_NOT_FOUND"
	APIGitHubError       APICode = "GITHUB_API_ERROR"
	APIRateLimitExceeded APICode = "RATE_LIMIT_EXCEEDED"
	APIAnalysisFailed    APICode = "ANALYSIS_FAILED"
	APIInternalError     APICode = "INTERNAL_ERROR"
)

// ToAPICode maps an error onto the envelope code enumeration.
func ToAPICode(err error) APICode {
	switch GetErrorCode(err) {
	case ErrCodeValidationFailed, ErrCodeRequiredField, ErrCodeDuplicateName, ErrCodeConfigInvalid:
		return APIValidationError
	case ErrCodeSiteNotFound, ErrCodeResultNotFound:
		return APISiteNotFound
	case ErrCodeUpstreamNotFound, ErrCodeUpstreamError, ErrCodeUpstreamAuth, ErrCodeServiceUnavailable:
		return APIGitHubError
	case ErrCodeUpstreamRateLimited:
		return APIRateLimitExceeded
	case ErrCodeAnalysisFailed, ErrCodeParseError, ErrCodeUnsupportedFormat:
		return APIAnalysisFailed
	default:
		return APIInternalError
	}
}

// HTTPStatus returns the status an API handler answers with for err.
// Only internal failures map to 5xx; everything else is reported in the envelope.
func HTTPStatus(err error, success int) int {
	if ToAPICode(err) == APIInternalError {
		return http.StatusInternalServerError
	}
	return success
}
