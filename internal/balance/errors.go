package balance

import "errors"

// Code is one of the error codes reported at the external boundary.
type Code string

const (
	CodeSucceeded      Code = "SUCCEEDED"
	CodeBalanced       Code = "E_BALANCED"
	CodeNotFound       Code = "E_NOT_FOUND"
	CodeLeaderChanged  Code = "E_LEADER_CHANGED"
	CodeStoreFailure   Code = "E_STORE_FAILURE"
	CodeNoValidHost    Code = "E_NO_VALID_HOST"
	CodeBadBalancePlan Code = "E_BAD_BALANCE_PLAN"
	CodeInvalidParm    Code = "E_INVALID_PARM"
	CodeUnknown        Code = "E_UNKNOWN"
)

// Error wraps a Code with a human-readable message, the error type every
// planning/execution entry point returns.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Msg
}

// NewError builds an *Error.
func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// CodeOf extracts the Code from err: CodeSucceeded for a nil err, or
// CodeUnknown if err isn't an *Error (e.g. a raw metastore/transport
// error propagated verbatim so the caller can retry).
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if err == nil {
		return CodeSucceeded
	}
	return CodeUnknown
}

// ErrBalanced is returned by genTasks when the space is already balanced
// and no lost hosts were given; informational, not a failure.
var ErrBalanced = NewError(CodeBalanced, "space already balanced")
