// Package aio provides an asynchronous I/O offload engine: blocking reads,
// writes, and hostname resolution are dispatched to a worker pool and
// completed on a single reactor thread.
package aio

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Error represents a structured aio error with context and errno mapping.
type Error struct {
	Op     string // operation that failed (e.g. "Init", "Write", "DNSLookup")
	TaskID uint64 // task ID, 0 if not applicable
	Code   ErrCode
	Errno  syscall.Errno
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.TaskID != 0 {
		parts = append(parts, fmt.Sprintf("task=%d", e.TaskID))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("aio: %s (%s)", msg, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("aio: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Inner }

// Is provides errors.Is support, comparing error codes.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrCode represents a high-level error category.
type ErrCode string

const (
	ErrCodeAlreadyInitialized ErrCode = "engine already initialized"
	ErrCodeNoReactor          ErrCode = "no reactor registered"
	ErrCodeNotInitialized     ErrCode = "engine not initialized"
	ErrCodeInvalidTask        ErrCode = "invalid task parameters"
	ErrCodeDispatchFailed     ErrCode = "thread pool refused task"
	ErrCodeIOError            ErrCode = "I/O error"
	ErrCodeLockFailed         ErrCode = "advisory lock failed"
	ErrCodeResolverFailed     ErrCode = "resolver failure"
	ErrCodeAddressFormat      ErrCode = "address did not fit in buffer"
	ErrCodeUnsupportedMode    ErrCode = "engine mode not supported"
)

// ErrBadIPv6Address is a deprecated alias of ErrCodeAddressFormat, kept for
// callers that matched on the original wart of reusing a v6-specific error
// code for both address families.
const ErrBadIPv6Address = ErrCodeAddressFormat

// NewError creates a new structured error.
func NewError(op string, code ErrCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewTaskError creates a new task-scoped structured error.
func NewTaskError(op string, taskID uint64, code ErrCode, msg string) *Error {
	return &Error{Op: op, TaskID: taskID, Code: code, Msg: msg}
}

// NewErrnoError creates a structured error from a syscall errno.
func NewErrnoError(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error()}
}

// WrapError wraps an existing error with aio context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ae, ok := inner.(*Error); ok {
		return &Error{Op: op, TaskID: ae.TaskID, Code: ae.Code, Errno: ae.Errno, Msg: ae.Msg, Inner: ae.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: ErrCodeIOError, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidTask
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeUnsupportedMode
	case syscall.EACCES, syscall.EPERM:
		return ErrCodeLockFailed
	default:
		return ErrCodeIOError
	}
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
