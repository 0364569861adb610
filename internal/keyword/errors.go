package keyword

import "errors"

// Machine-readable reasons for keyword validation failures. The boundary
// layer maps these to transport-specific codes.
const (
	ReasonConflictsWithGlobal = "CONFLICT_WITH_GLOBAL"
	ReasonDuplicatePersonal   = "DUPLICATE_PERSONAL"
	ReasonGlobalImmutable     = "GLOBAL_CANNOT_BE_DELETED"
	ReasonKeywordInUse        = "KEYWORD_IN_USE"
	ReasonNotOwner            = "NOT_KEYWORD_OWNER"
)

// ConflictError is the typed result of a keyword create/delete/link rule
// violation.
type ConflictError struct {
	Reason  string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Reason + ": " + e.Message
}

func conflict(reason, message string) *ConflictError {
	return &ConflictError{Reason: reason, Message: message}
}

// AsConflict unwraps a ConflictError if err carries one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
