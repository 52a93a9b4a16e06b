package studio

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ kind string }

func (e tooBusyError) Error() string { return "too busy: " + e.kind }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// notFoundError reports a missing project or share token.
type notFoundError struct{ what string }

func (e notFoundError) Error() string { return e.what + " not found" }

// ErrNotFound constructs a notFoundError for the given subject.
func ErrNotFound(what string) error { return notFoundError{what: what} }

// IsNotFound reports whether err indicates a missing project/token.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// badOutputError reports that the model completed but produced output that
// could not be decoded or validated (mapped to 502).
type badOutputError struct{ msg string }

func (e badOutputError) Error() string { return "unusable model output: " + e.msg }

// IsBadOutput reports whether err indicates undecodable model output.
func IsBadOutput(err error) bool {
	_, ok := err.(badOutputError)
	return ok
}

// invalidInputError reports a caller mistake (empty title, missing safety
// acknowledgement) mapped to 400.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err indicates a rejected request payload.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}
