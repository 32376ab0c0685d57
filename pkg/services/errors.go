package services

// ValidationError reports bad caller input on a generator endpoint. The
// message goes to the client verbatim; MissingFields lists the specific
// counterpart fields a contract-generation request lacked.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with just a message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
