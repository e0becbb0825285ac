package dto

// APIError is the body of every non-2xx response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeDuplicate     = "duplicate"
	ErrCodeNoResult      = "no_result"
)

func NewAPIError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError hides the cause from the client
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// DuplicateError is returned when the same payload was submitted recently.
func DuplicateError() APIError {
	return NewAPIError(ErrCodeDuplicate, "payload was already received")
}

// NoResultError is returned when no rule or classifier recognized a bill.
func NoResultError() APIError {
	return NewAPIError(ErrCodeNoResult, "no bill recognized in payload")
}
