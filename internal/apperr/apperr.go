package apperr

// The three error kinds every service surfaces to handlers. Anything that
// is not one of these is treated as an internal error by the HTTP layer.

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

func Conflict(msg string) error {
	return &ConflictError{Message: msg}
}

func NotFound(msg string) error {
	return &NotFoundError{Message: msg}
}
