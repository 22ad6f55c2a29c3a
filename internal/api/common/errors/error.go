package errors

import "fmt"

// ValidationError is the caller's fault: malformed or missing input. The
// ingestion pipeline stops before any side effect when it sees one.
type ValidationError struct {
	Field  string
	Detail string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func ValidationErr(field, detail string) ValidationError {
	return ValidationError{
		Field:  field,
		Detail: detail,
	}
}

// StorageError wraps a durable-write or query failure. Nothing is ever
// broadcast for a reading whose append failed.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}

func StorageErr(op string, err error) StorageError {
	return StorageError{
		Op:  op,
		Err: err,
	}
}

// RelayUnavailableError means the messaging channel is not connected. The
// authenticated alert endpoint refuses with 503 before writing anything.
type RelayUnavailableError struct{}

func (RelayUnavailableError) Error() string {
	return "messaging relay not connected"
}

func RelayUnavailableErr() RelayUnavailableError {
	return RelayUnavailableError{}
}

// RelayTimeoutError means the relay did not confirm delivery within its
// bounded timeout. The committed reading is not rolled back.
type RelayTimeoutError struct {
	Timeout string
}

func (e RelayTimeoutError) Error() string {
	return fmt.Sprintf("relay delivery timed out after %s", e.Timeout)
}

func RelayTimeoutErr(timeout string) RelayTimeoutError {
	return RelayTimeoutError{
		Timeout: timeout,
	}
}

// RelayFailure is any other best-effort notification failure.
type RelayFailure struct {
	Err error
}

func (e RelayFailure) Error() string {
	return fmt.Sprintf("relay delivery failed: %v", e.Err)
}

func (e RelayFailure) Unwrap() error {
	return e.Err
}

func RelayFailureErr(err error) RelayFailure {
	return RelayFailure{
		Err: err,
	}
}
