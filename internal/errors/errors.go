// Package errors provides custom error types and exit codes for cacertsync.
package errors

import (
	"errors"
	"fmt"
)

// SyncError is a custom error type that provides context about operations.
type SyncError struct {
	Op   string // Operation being performed (e.g., "import certificate", "restore cacerts")
	Path string // File path involved
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Predefined errors for common scenarios.
var (
	ErrNoJava          = fmt.Errorf("no java installation found")
	ErrInvalidJavaHome = fmt.Errorf("java home has no executable runtime")
	ErrNoKeytool       = fmt.Errorf("keytool not found in java installation")
	ErrNoBackup        = fmt.Errorf("no cacerts backup found")
	ErrUnknownFormat   = fmt.Errorf("unrecognized keystore format")
)

// Exit codes - use these constants in CLI commands instead of hardcoding values.
const (
	ExitSuccess      = 0 // Success
	ExitGeneralError = 1 // General error (file I/O, permissions, keytool failure)
	ExitConfigError  = 2 // Configuration error (missing or invalid Java installation)
	ExitCertError    = 3 // Certificate error (unreadable store, no backup on restore)
	ExitLockError    = 4 // Lock error (another cacertsync run holds the store lock)
)

// IsError checks if the given error matches the target error using errors.Is.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
