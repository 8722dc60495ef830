package provider

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindTransient     ErrorKind = "transient"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindNotFound      ErrorKind = "not_found"
	KindMalformed     ErrorKind = "malformed"
)

// Error is the provider failure taxonomy. Kind decides retry and propagation
// behavior: transient errors are retried inside the rate-limited client,
// quota errors halt the whole run, not-found and malformed are per-item.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func kindOf(err error) (ErrorKind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return "", false
}

func IsTransient(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindTransient
}

func IsQuotaExceeded(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindQuotaExceeded
}

func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNotFound
}

func IsMalformed(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindMalformed
}

// classifyStatus maps an HTTP response status to the error taxonomy.
// 429 and 402 indicate an exhausted quota and must never be retried.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 429 || status == 402:
		return KindQuotaExceeded
	case status == 404:
		return KindNotFound
	case status == 408 || status >= 500:
		return KindTransient
	default:
		return KindMalformed
	}
}
