package planapi

import (
	"fmt"
	"net/http"
)

// NetworkError reports a request that never produced an HTTP response:
// connection refused, DNS failure, timeout or a cancelled context.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("planapi: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx response. Body holds the start of the
// response body for diagnostics.
type ServerError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	text := http.StatusText(e.Status)
	if text == "" {
		text = "unexpected status"
	}
	if e.Body == "" {
		return fmt.Sprintf("planapi: %s: %d %s", e.Op, e.Status, text)
	}
	return fmt.Sprintf("planapi: %s: %d %s: %s", e.Op, e.Status, text, e.Body)
}

// ParseError reports a 2xx response whose body is not the expected JSON.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("planapi: %s: decode response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
