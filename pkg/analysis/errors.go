package analysis

import "fmt"

// Kind classifies an analysis failure. The HTTP layer maps these
// three ways: validation and parsing become 400, external becomes 500.
type Kind string

const (
	// KindValidation means the caller's input was wrong (not a contract,
	// unsupported document, missing fields). The message is safe to show
	// to the user verbatim.
	KindValidation Kind = "validation"
	// KindParsing means the upstream file was malformed and no text
	// could be extracted from it.
	KindParsing Kind = "parsing"
	// KindExternal means the reasoning service or another dependency
	// failed; the analysis may succeed on retry.
	KindExternal Kind = "external"
)

// Error is the tagged analysis error. It replaces classification by
// message-content sniffing with an explicit kind carried from the
// failure site.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a caller-input error with an optional detail string.
func NewValidationError(message, details string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NewParsingError creates a malformed-document error.
func NewParsingError(message string, cause error) *Error {
	return &Error{Kind: KindParsing, Message: message, Cause: cause}
}

// NewExternalError creates a dependency-failure error.
func NewExternalError(message string, cause error) *Error {
	return &Error{Kind: KindExternal, Message: message, Cause: cause}
}
