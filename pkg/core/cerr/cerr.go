// Package cerr represents the core layer errors. This package includes
// the Error struct which helps to wrap common errors with a Kind, so
// errors may be classified based on their category by the cmd/dbmig
// CLI layer (e.g. to choose an exit code or a user-facing message)
// without the core depending on that layer at all.
package cerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the taxonomy categories named
// by the migration engine's error handling design.
type Kind int

const (
	// KindBadFilename indicates a file's name does not match the
	// grammar expected at its location.
	KindBadFilename Kind = iota
	// KindIncompleteFilename indicates a file's name parses as a
	// version but lacks the mandatory "script.N" build metadata.
	KindIncompleteFilename
	// KindScriptDirUniqueness indicates two files in one ScriptDir
	// collapse to the same version key.
	KindScriptDirUniqueness
	// KindScriptNonContiguous indicates an upgrade-script range
	// contains a non-contiguous step.
	KindScriptNonContiguous
	// KindScriptChangedSinceDeployment indicates that, during
	// rollback, a script file's recomputed hash differs from the hash
	// recorded in the changelog at deployment time.
	KindScriptChangedSinceDeployment
	// KindNoSuitableInstall indicates a baseline install was
	// requested but no install script at or below the target exists.
	KindNoSuitableInstall
	// KindNoRollbackPath indicates a rollback was requested but the
	// changelog does not contain the target version in the current
	// install window.
	KindNoRollbackPath
	// KindInternalInconsistency indicates the first rollback step's
	// from_version does not equal the computed current version.
	KindInternalInconsistency
	// KindUnsupportedBackend indicates the database session reports a
	// backend for which no dialect is registered.
	KindUnsupportedBackend
	// KindUserCancelled indicates a confirmation prompt was declined.
	KindUserCancelled
	// KindFilesystem wraps an error surfaced from the filesystem
	// abstraction.
	KindFilesystem
	// KindDatabase wraps an error surfaced from the database session
	// abstraction.
	KindDatabase
	// KindParse wraps a SemVer parse error.
	KindParse
)

var kindNames = map[Kind]string{
	KindBadFilename:                  "bad-filename",
	KindIncompleteFilename:           "incomplete-filename",
	KindScriptDirUniqueness:          "script-dir-uniqueness",
	KindScriptNonContiguous:          "script-non-contiguous",
	KindScriptChangedSinceDeployment: "script-changed-since-deployment",
	KindNoSuitableInstall:            "no-suitable-install",
	KindNoRollbackPath:               "no-rollback-path",
	KindInternalInconsistency:        "internal-inconsistency",
	KindUnsupportedBackend:           "unsupported-backend",
	KindUserCancelled:                "user-cancelled",
	KindFilesystem:                   "filesystem-error",
	KindDatabase:                     "database-error",
	KindParse:                        "parse-error",
}

// String returns the logical taxonomy name of k.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown-error"
}

// Error wraps an Err error and classifies it with a Kind, so callers
// (typically the cmd/dbmig CLI layer) can distinguish, e.g., a
// KindUserCancelled abort from a KindDatabase failure without string
// matching on the error message.
type Error struct {
	Err  error
	Kind Kind
}

// Unwrap returns the wrapped inner error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error implements the error interface, returning a string
// representation of the Error instance.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Err.Error())
}

// New wraps err and classifies it with kind.
func New(kind Kind, err error) *Error {
	return &Error{Err: err, Kind: kind}
}

// Is reports whether err is a *cerr.Error of the given kind, looking
// through any wrapping via errors.As semantics (callers typically use
// errors.As directly; Is is a convenience for the common case).
func Is(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}
