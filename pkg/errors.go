package gitsemver

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it and the CLI can
// pick an exit code.
type Kind string

const (
	// KindVcsUnavailable means git is missing or exited non-zero.
	KindVcsUnavailable Kind = "VCS_UNAVAILABLE"
	// KindNoTagsFound means the repository has no reachable tag.
	KindNoTagsFound Kind = "NO_TAGS_FOUND"
	// KindMalformedVersion means a tag or manifest string matched no grammar.
	KindMalformedVersion Kind = "MALFORMED_VERSION"
	// KindManifestNotFound means the manifest file does not exist.
	KindManifestNotFound Kind = "MANIFEST_NOT_FOUND"
	// KindManifestMalformed means the manifest could not be parsed or has no
	// single version field.
	KindManifestMalformed Kind = "MANIFEST_MALFORMED"
	// KindVersionInconsistent means the manifest declares a version newer
	// than the latest tag.
	KindVersionInconsistent Kind = "VERSION_INCONSISTENT"
	// KindVersionMismatch means check-tags found a state its policy rejects
	// that is not an inconsistency, e.g. an untouched manifest behind a new tag.
	KindVersionMismatch Kind = "VERSION_MISMATCH"
	// KindConfigInvalid means the configuration file or a flag value is invalid.
	KindConfigInvalid Kind = "CONFIG_INVALID"
)

// Error is the error type returned by every operation in this package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so sentinel comparisons like
// errors.Is(err, &Error{Kind: KindNoTagsFound}) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var exitCodes = map[Kind]int{
	KindVcsUnavailable:      2,
	KindNoTagsFound:         3,
	KindMalformedVersion:    4,
	KindManifestNotFound:    5,
	KindManifestMalformed:   6,
	KindVersionInconsistent: 7,
	KindConfigInvalid:       8,
	KindVersionMismatch:     9,
}

// ExitCode maps err to a process exit status. nil is 0 and errors without
// a known kind are 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[KindOf(err)]; ok {
		return code
	}
	return 1
}
