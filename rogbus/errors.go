package rogbus

import (
	"errors"
	"fmt"
)

var (
	ErrDisconnected   = errors.New("channel not connected")
	ErrUnknownMethod  = errors.New("method not in interface description")
	ErrServiceMissing = errors.New("service has no owner on the bus")
	ErrReadOnly       = errors.New("property is read-only")
)

// ConnectionError reports a channel that failed to start. The channel stays
// disconnected and every operation on it is a no-op.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteCallError reports a failed method call on a connected channel.
type RemoteCallError struct {
	Path   string
	Method string
	Err    error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("call %s on %s: %v", e.Method, e.Path, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// DecodeError reports a payload whose shape does not match the expected
// wire type at all. Unknown enum members never produce one.
type DecodeError struct {
	Type   string
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Type, e.Detail)
}
