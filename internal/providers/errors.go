package providers

import "fmt"

// BackendError wraps any transport or upstream failure with the backend that
// produced it.
type BackendError struct {
	Backend Backend
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
