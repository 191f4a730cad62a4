package mcp

import "fmt"

// TransportError covers everything that prevented a well-formed server
// response: connection failures, timeouts, non-2xx statuses, and
// malformed bodies. The agent surfaces these as observations, never as
// crashes.
type TransportError struct {
	Op      string // e.g. "tools/call"
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out calling %s", e.Op, e.URL)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is an application-level failure reported by the server
// through the error field of an otherwise valid response.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: server error: %s", e.Op, e.Message)
}
