package utils

type ErrorType int

const (
	ErrInternal ErrorType = iota
	ErrBadInput
	ErrNotAllowed
	ErrNotFound
	ErrTooLarge
)

func (t ErrorType) String() string {
	switch t {
	case ErrInternal:
		return "internal"
	case ErrBadInput:
		return "bad_input"
	case ErrNotAllowed:
		return "not_allowed"
	case ErrNotFound:
		return "not_found"
	case ErrTooLarge:
		return "too_large"
	}
	return "unknown"
}

// Failure is an expected, user-facing outcome. Validation stages return one
// instead of an error; a nil *Failure means the stage passed.
type Failure struct {
	Type    ErrorType
	Title   string
	Message string
	Data    map[string]any
}

func (f Failure) Error() string {
	return f.Message
}

// CorrelationID returns the error report ID attached to an internal failure.
func (f Failure) CorrelationID() string {
	id, _ := f.Data["correlation_id"].(string)
	return id
}
