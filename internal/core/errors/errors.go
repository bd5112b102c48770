// Package errors defines the coded error type used across lazyresolve, plus the panic
// protocol for broken resolver and indexer contracts.
package errors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	// CodeInvariant marks a broken resolver/indexer contract. These are raised as panics and
	// abort only the request that triggered them.
	CodeInvariant ErrorCode = "INVARIANT_VIOLATION"
)

// Context keys.
const (
	CtxPath        = "path"
	CtxOperation   = "operation"
	CtxLanguage    = "language"
	CtxSymbol      = "symbol"
	CtxDeclaration = "declaration"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any, 1)
	}
	e.Context[key] = value
	return e
}

// Error renders "[CODE] message: cause {k=v ...}" with context keys sorted.
func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Context) == 0 {
		return b.String()
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	b.WriteString(" {")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
	}
	b.WriteByte('}')
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key/value pair, wrapping foreign errors as internal ones.
func AddContext(err error, key string, value any) error {
	if de, ok := asDomain(err); ok {
		return de.WithContext(key, value)
	}
	return (&DomainError{Code: CodeInternal, Message: "wrapped error", Err: err}).WithContext(key, value)
}

// IsCode reports whether the outermost DomainError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	de, ok := asDomain(err)
	return ok && de.Code == code
}

func asDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Invariantf panics with a CodeInvariant DomainError.
func Invariantf(format string, args ...any) {
	panic(&DomainError{Code: CodeInvariant, Message: fmt.Sprintf(format, args...)})
}

// AsInvariant reports whether a recovered panic value is an invariant violation.
func AsInvariant(recovered any) (*DomainError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	if de, ok := asDomain(err); ok && de.Code == CodeInvariant {
		return de, true
	}
	return nil, false
}

// Recover turns an invariant panic into *errp. Any other panic is re-raised.
// Use it with defer at request boundaries only.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	de, ok := AsInvariant(r)
	if !ok {
		panic(r)
	}
	*errp = de
}
