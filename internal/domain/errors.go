package domain

import "errors"

// ErrorKind is the stable classification of an engine failure. Transports map
// it to their own status codes; callers branch on it instead of message text.
type ErrorKind string

const (
	KindInternal           ErrorKind = "INTERNAL"
	KindInvalidArgument    ErrorKind = "INVALID_ARGUMENT"
	KindNotAuthorized      ErrorKind = "NOT_AUTHORIZED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInvalidState       ErrorKind = "INVALID_STATE"
	KindLimitExceeded      ErrorKind = "LIMIT_EXCEEDED"
	KindInvariantViolation ErrorKind = "INVARIANT_VIOLATION"
	KindConflict           ErrorKind = "CONFLICT"
	KindUnavailable        ErrorKind = "UNAVAILABLE"
)

// KindError is a classified error. The package-level sentinels are the only
// instances; call sites wrap them with fmt.Errorf("%w: ...").
type KindError struct {
	Kind ErrorKind
	msg  string
}

func (e *KindError) Error() string {
	return e.msg
}

var (
	ErrInvalidArgument    = &KindError{Kind: KindInvalidArgument, msg: "invalid argument"}
	ErrNotAuthorized      = &KindError{Kind: KindNotAuthorized, msg: "not authorized"}
	ErrNotFound           = &KindError{Kind: KindNotFound, msg: "not found"}
	ErrInvalidState       = &KindError{Kind: KindInvalidState, msg: "invalid state"}
	ErrLimitExceeded      = &KindError{Kind: KindLimitExceeded, msg: "limit exceeded"}
	ErrInvariantViolation = &KindError{Kind: KindInvariantViolation, msg: "invariant violation"}
	ErrConflict           = &KindError{Kind: KindConflict, msg: "conflict"}
	ErrUnavailable        = &KindError{Kind: KindUnavailable, msg: "unavailable"}
)

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) ErrorKind {
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	return KindInternal
}

func isClassified(err error) bool {
	return KindOf(err) != KindInternal
}
