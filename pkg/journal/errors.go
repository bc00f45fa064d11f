package journal

import "fmt"

// StorageError reports a failure in a storage backend.
type StorageError struct {
	Backend   string // backend name ("memory", "sqlite")
	Operation string // failed operation ("store", "query", "delete")
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("journal storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RetentionError reports a failure while enforcing retention.
type RetentionError struct {
	MaxAge string // configured retention window, for the message
	Cause  error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("journal retention error [max_age=%s]: %v", e.MaxAge, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// ExportError reports a failure while exporting records.
type ExportError struct {
	Format      string // output format ("csv", "json")
	RecordCount int
	Cause       error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("journal export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExportError) Unwrap() error {
	return e.Cause
}
