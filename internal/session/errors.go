package session

import "fmt"

// CorruptRecordError indicates that stored content for a session could
// not be parsed. It is distinct from a miss: the record exists but is
// unreadable.
type CorruptRecordError struct {
	SID    string
	Source string
	Err    error
}

func (e CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt session record %s at %s: %v", e.SID, e.Source, e.Err)
}

func (e CorruptRecordError) Unwrap() error {
	return e.Err
}

// ReadError indicates an I/O failure other than "missing" while
// accessing stored session data.
type ReadError struct {
	Op  string
	SID string
	Err error
}

func (e ReadError) Error() string {
	if e.SID == "" {
		return fmt.Sprintf("session store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session store %s failed for %s: %v", e.Op, e.SID, e.Err)
}

func (e ReadError) Unwrap() error {
	return e.Err
}

// InvalidSIDError indicates a session identifier the backend cannot
// store, such as one containing path separators.
type InvalidSIDError struct {
	SID    string
	Reason string
}

func (e InvalidSIDError) Error() string {
	return fmt.Sprintf("invalid session id %q: %s", e.SID, e.Reason)
}
