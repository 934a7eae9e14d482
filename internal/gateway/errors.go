package gateway

import "fmt"

// RemoteUnavailableError means the instance cannot be reached at all: the pod
// is gone, exec is refused, or the sqlite binary is missing. Investigations
// abort on it instead of producing an all-gaps report.
type RemoteUnavailableError struct {
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote instance unavailable: %v", e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// QueryFailedError means the instance was reachable but one query failed.
// Collectors degrade to a data gap on it.
type QueryFailedError struct {
	SQL    string
	Stderr string
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("query failed: %s", e.Stderr)
}

// ParseFailedError means a query succeeded but its output did not match the
// expected shape.
type ParseFailedError struct {
	Raw    string
	Reason string
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("failed to parse query output: %s", e.Reason)
}
