package recorder

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeCorruptDatabase indicates the store file is present but
	// cannot be parsed back into scenes.
	ErrCodeCorruptDatabase ErrorCode = "CORRUPT_DATABASE"

	// ErrCodeBadConfig indicates invalid process configuration, such
	// as a missing or non-integer replay scene index.
	ErrCodeBadConfig ErrorCode = "BAD_CONFIG"

	// ErrCodeNoScenes indicates a record-mode interception ran before
	// any scene was opened.
	ErrCodeNoScenes ErrorCode = "NO_SCENES"
)

// Error represents a fatal engine error. Recoverable conditions
// (divergence, unknown tags, missing memos) are warnings plus
// passthrough, never an Error.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string // store file, when relevant
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (db=%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCorruptDatabase reports whether err is a CORRUPT_DATABASE error.
// Uses errors.As to handle wrapped errors.
func IsCorruptDatabase(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeCorruptDatabase
	}
	return false
}

// IsBadConfig reports whether err is a BAD_CONFIG error.
func IsBadConfig(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeBadConfig
	}
	return false
}

// Memo lookup outcomes. Exhaustion is a strict-discipline condition
// (the replay consumed more calls than were recorded); NotFound is the
// loose-discipline miss. Both trigger passthrough, not failure.
var (
	ErrCursorExhausted = errors.New("memo cursor out of bounds")
	ErrCallNotFound    = errors.New("no memoized call for input")
)
