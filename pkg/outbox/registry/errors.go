package registry

// NonRetryableError marks a failure that will not succeed on retry, such as
// an unknown event type or a payload that cannot be decoded. The relay dead
// letters these rows and consumers ack the message.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }
