package core

import "fmt"

// ErrKind enumerates the structured error taxonomy of spec.md §7. Every
// error that crosses a component boundary in the execution core is a
// *ChainError carrying one of these kinds, mirroring the teacher's habit
// (pkg/utils.Wrap) of always attaching a message to an error rather than
// returning bare sentinels.
type ErrKind uint8

const (
	ErrInternal ErrKind = iota
	ErrGenesis
	ErrParse
	ErrSerialization
	ErrAuthorization
	ErrPermissionNotFound
	ErrMissingAuth
	ErrIrrelevantAuth
	ErrTransaction
	ErrActionValidation
	ErrWasmRuntime
	ErrDatabase
	ErrNetwork
)

func (k ErrKind) String() string {
	switch k {
	case ErrInternal:
		return "InternalError"
	case ErrGenesis:
		return "GenesisError"
	case ErrParse:
		return "ParseError"
	case ErrSerialization:
		return "SerializationError"
	case ErrAuthorization:
		return "AuthorizationError"
	case ErrPermissionNotFound:
		return "PermissionNotFound"
	case ErrMissingAuth:
		return "MissingAuthError"
	case ErrIrrelevantAuth:
		return "IrrelevantAuth"
	case ErrTransaction:
		return "TransactionError"
	case ErrActionValidation:
		return "ActionValidationError"
	case ErrWasmRuntime:
		return "WasmRuntimeError"
	case ErrDatabase:
		return "DatabaseError"
	case ErrNetwork:
		return "NetworkError"
	default:
		return "UnknownError"
	}
}

// ChainError is the structured error type returned across the execution
// core's component boundaries. Controller.PushTransaction attaches it
// verbatim to the transaction trace's Except field (spec.md §7).
type ChainError struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *ChainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChainError) Unwrap() error { return e.Cause }

func newChainError(kind ErrKind, format string, args ...interface{}) *ChainError {
	return &ChainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapChainError(kind ErrKind, cause error, format string, args ...interface{}) *ChainError {
	return &ChainError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is a *ChainError of the given kind.
func IsKind(err error, kind ErrKind) bool {
	ce, ok := err.(*ChainError)
	return ok && ce.Kind == kind
}

// Storage-layer failure modes (spec.md §4.A). These are distinct sentinel
// kinds used internally by MultiIndexStore and surfaced to callers wrapped
// as ErrDatabase via wrapChainError.
type storeErrKind uint8

const (
	storeAlreadyExists storeErrKind = iota
	storeNotFound
	storeInvalidData
	storeReadError
	storeInternal
)

type storeError struct {
	kind storeErrKind
	msg  string
}

func (e *storeError) Error() string { return e.msg }

func newStoreError(kind storeErrKind, msg string) *storeError {
	return &storeError{kind: kind, msg: msg}
}
