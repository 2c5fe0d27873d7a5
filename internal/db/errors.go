package db

import "errors"

// ErrClosed is returned by a router after Close.
var ErrClosed = errors.New("db: router closed")

// Op names the storage step that failed, for error context.
const (
	OpOpen    = "OPEN"
	OpPing    = "PING"
	OpPragma  = "PRAGMA"
	OpBegin   = "BEGIN"
	OpCommit  = "COMMIT"
	OpPrepare = "PREPARE"
	OpExec    = "EXEC"
	OpQuery   = "QUERY"
	OpClose   = "CLOSE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
