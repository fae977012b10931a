// Package errors provides the typed errors returned by every gridload package.
//
// Each error carries an ErrorType that callers branch on, an optional cause,
// free-form details such as the column or row range that failed, and the call
// stack captured where the error was first created. Wrapping an *Error keeps
// the innermost stack so the origin survives any number of decorations.
package errors

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
)

// ErrorType is the category of an error
type ErrorType string

const (
	// ErrorTypeInternal is used for failures that fit no other category
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid arguments such as out of range rows
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeShapeMismatch is raised when a grid cannot be split into the requested columns
	ErrorTypeShapeMismatch ErrorType = "shape_mismatch"
	// ErrorTypeDTypeMismatch is raised when a grid does not hold sequence handles
	ErrorTypeDTypeMismatch ErrorType = "dtype_mismatch"
	// ErrorTypeLockPoisoned is raised when the allocation lock was poisoned by a panic
	ErrorTypeLockPoisoned ErrorType = "lock_poisoned"
	// ErrorTypeHandleConstruction is raised when the runtime refuses to build a handle
	ErrorTypeHandleConstruction ErrorType = "handle_construction"
	// ErrorTypeFinalized is raised when a finalized writer is used again
	ErrorTypeFinalized ErrorType = "finalized"
	// ErrorTypeSource represents failures reading upstream rows
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

const maxStackDepth = 32

// Error is a typed error with details and the stack of its origin
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]any
	Stack   []StackFrame
}

// StackFrame is one resolved frame of a captured stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type, so that
// errors.Is(err, errors.New(ErrorTypeLockPoisoned, "")) matches any poisoned
// lock failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

// WithDetail attaches a key-value detail and returns the same error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 4)
	}
	e.Details[key] = value
	return e
}

// Format prints the plain message for %s and %v. %+v adds the details in key
// order followed by the origin stack.
func (e *Error) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+'):
		_, _ = io.WriteString(s, e.Error())
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(s, "\n  %s=%v", k, e.Details[k])
		}
		for _, f := range e.Stack {
			_, _ = fmt.Fprintf(s, "\n    %s\n        %s:%d", f.Function, f.File, f.Line)
		}
	case verb == 'v' || verb == 's':
		_, _ = io.WriteString(s, e.Error())
	case verb == 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// New creates an error of the given type
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, Stack: captureStack(3)}
}

// Newf creates an error with a formatted message
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Stack: captureStack(3)}
}

// Wrap decorates err with a type and message. A nil err stays nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := &Error{Type: errType, Message: message, Cause: err}
	var inner *Error
	if errors.As(err, &inner) {
		wrapped.Stack = inner.Stack
	} else {
		wrapped.Stack = captureStack(3)
	}
	return wrapped
}

// IsType checks if the error, or any *Error it wraps, has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the type of the outermost structured error, or ErrorTypeInternal
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// DetailOf looks up a detail on the error chain; outer values shadow inner ones
func DetailOf(err error, key string) (any, bool) {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil, false
		}
		if v, ok := e.Details[key]; ok {
			return v, true
		}
		err = e.Cause
	}
	return nil, false
}

func captureStack(skip int) []StackFrame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]StackFrame, 0, n)
	for {
		f, more := frames.Next()
		stack = append(stack, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return stack
}
