package skillapi

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConnectionError reports an endpoint that cannot be used at all: a malformed
// URL, an unsupported scheme or transport.
type ConnectionError struct {
	URL   string
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to skill endpoint %s: %v", e.URL, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// Fault is an error reported by the remote service itself, as opposed to a
// transport failure.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	if f.Code != 0 {
		return fmt.Sprintf("fault %d: %s", f.Code, f.Message)
	}
	return fmt.Sprintf("fault: %s", f.Message)
}

// RemoteCallError is returned by every client method whose single remote call
// did not produce a usable result: timeouts, refused connections, malformed
// responses and remote faults alike.
type RemoteCallError struct {
	Method string
	Cause  error
}

func (e *RemoteCallError) Error() string {
	if f, ok := e.Fault(); ok {
		return fmt.Sprintf("remote call %s failed: %s", e.Method, f.Message)
	}
	return fmt.Sprintf("remote call %s failed: %v", e.Method, e.Cause)
}

func (e *RemoteCallError) Unwrap() error { return e.Cause }

// Fault returns the remote fault behind the error, if the service reported one.
func (e *RemoteCallError) Fault() (*Fault, bool) {
	var f *Fault
	if errors.As(e.Cause, &f) {
		return f, true
	}
	return nil, false
}

// IsConnectionError reports whether err is, or wraps, a *ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsRemoteCallError reports whether err is, or wraps, a *RemoteCallError.
func IsRemoteCallError(err error) bool {
	var target *RemoteCallError
	return errors.As(err, &target)
}
